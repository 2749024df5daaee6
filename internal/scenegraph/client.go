package scenegraph

import (
	"fmt"

	"canopy/pkg/cook"
)

// transaction collects client creations and parsed deltas until committed.
type transaction struct {
	graph       *Graph
	deltas      []Delta
	newMonitors []*monitorClient
}

func (t *transaction) NewClient(op cook.Op) cook.Client {
	return &client{graph: t.graph, op: op}
}

func (t *transaction) NewMonitorClient(op cook.Op) cook.MonitorClient {
	mc := &monitorClient{
		client: client{graph: t.graph, op: op},
		active: make(map[string]bool),
	}
	t.newMonitors = append(t.newMonitors, mc)
	return mc
}

func (t *transaction) ParseDelta(d cook.Delta) error {
	delta, ok := d.(Delta)
	if !ok {
		return fmt.Errorf("scenegraph: delta is %T, want scenegraph.Delta", d)
	}
	if delta.Path == "" {
		return fmt.Errorf("scenegraph: delta with empty path")
	}
	switch delta.Op {
	case OpSet, OpRemove:
	default:
		return fmt.Errorf("scenegraph: unknown delta op %q", delta.Op)
	}
	t.deltas = append(t.deltas, delta)
	return nil
}

// client is one view onto the shared graph. All views read the committed
// state directly, so Sync is pure watermark bookkeeping: it reports the
// version this view is now current with.
type client struct {
	graph *Graph
	op    cook.Op
}

func (c *client) Cook(path string, evict bool) (cook.NodeData, error) {
	// evict is a memory hint; the scenegraph holds no per-cook cache.
	_ = evict
	return c.graph.cookLocation(path), nil
}

func (c *client) Sync(from cook.Client, lastVersion uint64) (uint64, error) {
	_ = from
	v := c.graph.Version()
	if v < lastVersion {
		return lastVersion, fmt.Errorf("scenegraph: version went backwards (%d < %d)", v, lastVersion)
	}
	return v, nil
}

// monitorClient queues a change event for every commit touching an active
// path, plus an initial event when a path first becomes active (mirroring
// runtimes that confirm registration with a snapshot event).
type monitorClient struct {
	client

	active  map[string]bool
	pending []cook.LocationEvent
}

func (m *monitorClient) SetLocationsActive(paths []string) error {
	m.graph.mu.Lock()
	defer m.graph.mu.Unlock()
	for _, p := range paths {
		if m.active[p] {
			continue
		}
		m.active[p] = true
		data := m.graph.cookLocked(p)
		m.pending = append(m.pending, cook.LocationEvent{Path: p, HasData: data.Exists, Data: data})
	}
	return nil
}

func (m *monitorClient) LocationEvents(max int) ([]cook.LocationEvent, error) {
	m.graph.mu.Lock()
	defer m.graph.mu.Unlock()
	if max <= 0 || len(m.pending) == 0 {
		return nil, nil
	}
	n := min(max, len(m.pending))
	events := m.pending[:n:n]
	m.pending = m.pending[n:]
	return events, nil
}

// notify is called under the graph lock during commit.
func (m *monitorClient) notify(touched map[string]bool) {
	for p := range touched {
		if !m.active[p] {
			continue
		}
		data := m.graph.cookLocked(p)
		m.pending = append(m.pending, cook.LocationEvent{Path: p, HasData: true, Data: data})
	}
}
