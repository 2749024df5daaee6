package traverse

import (
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"canopy/pkg/cook"
)

// maxEventDrain caps one LocationEvents call. Deltas can cascade new events
// while a batch is being processed, so drains repeat until empty anyway.
const maxEventDrain = 1 << 20

// childSets records what a monitored location's children looked like when it
// was first observed and at its most recent observation. original is
// write-once; latest is replaced wholesale on every later observation.
type childSets struct {
	known    bool // original has been captured
	original []string
	latest   []string
}

// workerBundle is the harvested per-worker monitoring state: the monitor and
// cook clients one worker created during the initial traversal, the cook
// client's sync watermark, and the locations that worker is responsible for.
// During delta processing each bundle is touched by exactly one goroutine,
// so none of its fields need locking.
type workerBundle struct {
	workerID   int
	monitor    cook.MonitorClient
	cookClient cook.Client
	lastSynced uint64
	active     map[string]*childSets
}

// MonitoringTraversal runs a normal traversal that additionally registers
// every cooked location for change notification, then processes op-tree
// deltas in parallel across the workers harvested from the initial pass.
type MonitoringTraversal struct {
	*Traversal

	monitorOp cook.Op
	// primary is the sync source the bundle cook clients catch up to.
	primary cook.Client

	leafType         string
	excludeLocations bool

	// Worker-indexed registries, written only by the owning worker during
	// the initial traversal and read single-threaded once it has completed
	// (the pool drain is the happens-before edge).
	monitorClients  []cook.MonitorClient
	activeLocations []map[string]*childSets

	bundles []workerBundle
}

// NewMonitoring creates a monitoring traversal. Workers cook through cookOp
// and register monitors through monitorOp on the given runtime.
func NewMonitoring(rt cook.Runtime, cookOp, monitorOp cook.Op) (*MonitoringTraversal, error) {
	base, err := NewFromRuntime(rt, cookOp)
	if err != nil {
		return nil, err
	}

	txn := rt.NewTransaction()
	primary := txn.NewClient(cookOp)
	if err := rt.Commit(txn); err != nil {
		return nil, fmt.Errorf("create primary cook client: %w", err)
	}

	m := &MonitoringTraversal{
		Traversal: base,
		monitorOp: monitorOp,
		primary:   primary,
	}
	base.hooks = m
	return m, nil
}

// SetLeafType restricts which changed locations trigger a full subtree
// re-cook during delta processing. Empty (the default) matches untyped
// locations. Ignored once the traversal has started.
func (m *MonitoringTraversal) SetLeafType(leafType string) {
	if m.State() == StateInitializing {
		m.leafType = leafType
	} else {
		m.log.Error("cannot set leaf type once traversal has started")
	}
}

// IsValid never reports false once delta processing has begun: there may
// always be more deltas.
func (m *MonitoringTraversal) IsValid() bool {
	st := m.State()
	if st == StateMonitoring || st == StatePartialMonitoring {
		return true
	}
	return m.Traversal.IsValid()
}

// ApplyOpTreeDeltas commits a batch of deltas to the shared graph through
// the runtime's transaction mechanism. The first call switches the traversal
// into (partial) monitoring mode; that fails unless the initial traversal
// has completed. Deltas are parsed in arrival order so the newest update to
// the same state wins.
func (m *MonitoringTraversal) ApplyOpTreeDeltas(deltas []cook.Delta, partialLiveRender, excludeLocations bool) error {
	st := m.State()
	if st != StateMonitoring && st != StatePartialMonitoring {
		if err := m.initializeOpTreeDeltaProcessing(partialLiveRender, excludeLocations); err != nil {
			return err
		}
	}

	txn := m.runtime.NewTransaction()
	for i, d := range deltas {
		if err := txn.ParseDelta(d); err != nil {
			return fmt.Errorf("parse delta %d: %w", i, err)
		}
	}
	if err := m.runtime.Commit(txn); err != nil {
		return fmt.Errorf("commit deltas: %w", err)
	}
	return nil
}

// initializeOpTreeDeltaProcessing pairs each worker that registered
// monitors with the cook client the same worker used, forming the bundles
// delta processing fans out over.
func (m *MonitoringTraversal) initializeOpTreeDeltaProcessing(partial, exclude bool) error {
	if m.State() != StateComplete {
		return ErrNotComplete
	}

	cookWorkers := 0
	for _, c := range m.cookClients {
		if c != nil {
			cookWorkers++
		}
	}

	monitorWorkers := 0
	for id, mc := range m.monitorClients {
		if mc == nil {
			continue
		}
		monitorWorkers++
		if m.cookClients[id] == nil {
			// A worker monitored a location without ever cooking one.
			// The initial traversal cannot legally do that.
			return fmt.Errorf("%w: worker %d", ErrMonitorWithoutCook, id)
		}
		m.bundles = append(m.bundles, workerBundle{
			workerID:   id,
			monitor:    mc,
			cookClient: m.cookClients[id],
			active:     m.activeLocations[id],
		})
	}

	// More cook workers than monitor workers just means some workers only
	// cooked below the monitored depth: fewer bundles, same correctness.
	if cookWorkers > monitorWorkers {
		m.log.Warn("fewer monitor workers than cook workers; reduced delta parallelism",
			"monitor_workers", monitorWorkers, "cook_workers", cookWorkers)
	}
	m.log.Debug("delta processing initialized", "bundles", len(m.bundles))

	if partial {
		m.state.Store(int32(StatePartialMonitoring))
	} else {
		m.state.Store(int32(StateMonitoring))
	}
	m.excludeLocations = exclude
	return nil
}

// GetLocations in monitoring mode drains and processes pending change
// events across all bundles in parallel, returning every re-cooked result.
// Before monitoring begins it behaves like the base traversal.
func (m *MonitoringTraversal) GetLocations() []cook.NodeData {
	st := m.State()
	if st != StateMonitoring && st != StatePartialMonitoring {
		return m.Traversal.GetLocations()
	}
	partial := st == StatePartialMonitoring
	if partial {
		m.log.Debug("partial monitoring enabled", "exclude", m.excludeLocations)
	}

	var mu sync.Mutex
	var merged []cook.NodeData

	var g errgroup.Group
	for i := range m.bundles {
		b := &m.bundles[i]
		g.Go(func() error {
			batch := m.processBundle(b, partial)
			if len(batch) == 0 {
				return nil
			}
			mu.Lock()
			merged = append(merged, batch...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // bundle failures are logged, never propagated

	return merged
}

// processBundle re-syncs one bundle's cook client and processes its pending
// events until none remain.
func (m *MonitoringTraversal) processBundle(b *workerBundle, partial bool) []cook.NodeData {
	// Each bundle's cook client has its own view of the op tree and has to
	// catch up to the committed version before re-cooking anything.
	v, err := b.cookClient.Sync(m.primary, b.lastSynced)
	if err != nil {
		m.log.Error("bundle sync failed", "worker", b.workerID, "error", err)
		return nil
	}
	b.lastSynced = v

	var out []cook.NodeData

	events, err := b.monitor.LocationEvents(maxEventDrain)
	for err == nil && len(events) > 0 {
		for _, ev := range events {
			cs, responsible := b.active[ev.Path]
			if !responsible {
				continue
			}

			if !ev.HasData || !ev.Data.Exists {
				// No fresh data to expand; forward the event itself.
				out = append(out, cook.NodeData{Path: ev.Path, Exists: false})
				continue
			}

			m.monitorUnmonitoredChildren(b, ev.Path, ev.Data, cs)

			if partial && m.skipMarked(ev.Data) {
				continue
			}

			if ev.Data.LeafType() == m.leafType {
				out = m.cookLocationAndChildren(b, ev.Path, out)
			}
		}

		// Processing can cascade more events; drain again until quiet.
		events, err = b.monitor.LocationEvents(maxEventDrain)
	}
	if err != nil {
		m.log.Error("event drain failed", "worker", b.workerID, "error", err)
	}

	return out
}

// skipMarked applies the partial-monitoring include/exclude filter.
func (m *MonitoringTraversal) skipMarked(d cook.NodeData) bool {
	if m.excludeLocations {
		return d.LiveMarked()
	}
	return !d.LiveMarked()
}

// monitorUnmonitoredChildren registers any newly appeared children of path
// with the bundle's monitor client and folds the observation into the
// bundle's child-set records.
func (m *MonitoringTraversal) monitorUnmonitoredChildren(b *workerBundle, path string, data cook.NodeData, cs *childSets) {
	current := data.PotentialChildren
	if slices.Equal(cs.latest, current) {
		return
	}

	names := UnmonitoredChildren(cs.original, cs.latest, current)
	if len(names) > 0 {
		paths := make([]string, len(names))
		for i, name := range names {
			paths[i] = cook.ChildPath(path, name)
		}
		if err := b.monitor.SetLocationsActive(paths); err != nil {
			m.log.Error("activate children failed", "path", path, "error", err)
		}
		for _, p := range paths {
			b.active[p] = &childSets{}
		}
	}

	if !cs.known {
		cs.known = true
		cs.original = slices.Clone(current)
	}
	cs.latest = slices.Clone(current)
}

// cookLocationAndChildren re-cooks path and its entire subtree depth-first
// on the calling goroutine, appending every result (existing or not) to out.
func (m *MonitoringTraversal) cookLocationAndChildren(b *workerBundle, path string, out []cook.NodeData) []cook.NodeData {
	stack := []string{path}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		data, err := b.cookClient.Cook(p, false)
		if err != nil {
			m.log.Error("re-cook failed", "path", p, "error", err)
			return out
		}
		out = append(out, data)
		if !data.Exists {
			continue
		}
		for _, name := range data.PotentialChildren {
			stack = append(stack, cook.ChildPath(p, name))
		}
	}
	return out
}

// Extension-point overrides.

func (m *MonitoringTraversal) initWorkerState(workers int) {
	m.Traversal.initWorkerState(workers)
	m.monitorClients = make([]cook.MonitorClient, workers)
	m.activeLocations = make([]map[string]*childSets, workers)
}

// preCookCallback registers each location for monitoring before it is
// cooked, on the same worker, and records its children. Returning false for
// nonexistent locations stops the hook from running below them.
func (m *MonitoringTraversal) preCookCallback() preCookFn {
	return m.monitorLocation
}

// evictAfterCook keeps cooked state resident: delta processing needs it.
func (m *MonitoringTraversal) evictAfterCook() bool { return false }

func (m *MonitoringTraversal) monitorLocation(workerID int, path string) bool {
	mc := m.monitorClientFor(workerID)

	if err := mc.SetLocationsActive([]string{path}); err != nil {
		m.log.Error("monitor registration failed", "path", path, "error", err)
		return false
	}

	data, err := mc.Cook(path, false)
	if err != nil {
		m.log.Error("monitor cook failed", "path", path, "error", err)
		return false
	}

	m.activeLocations[workerID][path] = &childSets{
		known:    true,
		original: slices.Clone(data.PotentialChildren),
		latest:   slices.Clone(data.PotentialChildren),
	}

	return data.Exists
}

func (m *MonitoringTraversal) monitorClientFor(workerID int) cook.MonitorClient {
	if m.monitorClients[workerID] == nil {
		txn := m.runtime.NewTransaction()
		mc := txn.NewMonitorClient(m.monitorOp)
		if err := m.runtime.Commit(txn); err != nil {
			panic(fmt.Errorf("create monitor client: %w", err))
		}
		m.monitorClients[workerID] = mc
		m.activeLocations[workerID] = make(map[string]*childSets)
	}
	return m.monitorClients[workerID]
}

// onTraversalComplete purges the initial event backlog from every monitor
// client: the events describe exactly what was just cooked.
func (m *MonitoringTraversal) onTraversalComplete() {
	var g errgroup.Group
	for _, mc := range m.monitorClients {
		if mc == nil {
			continue
		}
		mc := mc
		g.Go(func() error {
			for {
				events, err := mc.LocationEvents(maxEventDrain)
				if err != nil || len(events) == 0 {
					return err
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		m.log.Warn("initial event purge failed", "error", err)
	}

	m.Traversal.onTraversalComplete()
}
