// Package scenegraph is an in-memory, versioned implementation of the cook
// boundary: a node table keyed by location path, transactional delta
// commits, and monitor clients that queue change events for active
// locations. It backs the CLI and the test suite; production deployments
// plug in their own runtime.
package scenegraph

import (
	"fmt"
	"sync"

	"canopy/pkg/cook"
)

// NodeSpec defines one location in the graph.
type NodeSpec struct {
	Type     string
	Parallel *bool // nil means default (parallel enabled)
	Marked   bool
	Attrs    map[string]any
	Children []string
}

// node is the committed form of a NodeSpec.
type node struct {
	attrs    cook.Attrs
	children []string
}

// Graph is the shared committed state plus the registry of monitor clients
// to notify on commit. It implements cook.Runtime.
type Graph struct {
	mu       sync.Mutex
	version  uint64
	nodes    map[string]*node
	monitors []*monitorClient
}

func New() *Graph {
	return &Graph{nodes: make(map[string]*node), version: 1}
}

// SetNode seeds or replaces a node outside the transaction mechanism.
// Intended for building the initial tree before traversal starts.
func (g *Graph) SetNode(path string, spec NodeSpec) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[path] = buildNode(spec)
}

// Version returns the committed version watermark.
func (g *Graph) Version() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.version
}

func buildNode(spec NodeSpec) *node {
	attrs := cook.Attrs{}
	for k, v := range spec.Attrs {
		attrs[k] = v
	}
	if spec.Type != "" {
		attrs[cook.AttrLeafType] = spec.Type
	}
	if spec.Parallel != nil {
		attrs[cook.AttrParallelTraversal] = *spec.Parallel
	}
	if spec.Marked {
		attrs[cook.AttrLiveMarked] = true
	}
	return &node{attrs: attrs, children: append([]string(nil), spec.Children...)}
}

// cookLocked materializes path against committed state. Missing nodes cook
// as nonexistent, which the traversal treats as an ordinary leaf-less stop.
func (g *Graph) cookLocked(path string) cook.NodeData {
	n, ok := g.nodes[path]
	if !ok {
		return cook.NodeData{Path: path}
	}
	return cook.NodeData{
		Path:              path,
		Exists:            true,
		Attrs:             n.attrs.Clone(),
		PotentialChildren: append([]string(nil), n.children...),
	}
}

func (g *Graph) cookLocation(path string) cook.NodeData {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cookLocked(path)
}

// NewTransaction implements cook.Runtime.
func (g *Graph) NewTransaction() cook.Transaction {
	return &transaction{graph: g}
}

// Commit implements cook.Runtime: registers any clients the transaction
// created, applies its deltas in parse order, bumps the version once, and
// queues change events on every monitor client with a touched path active.
func (g *Graph) Commit(txn cook.Transaction) error {
	t, ok := txn.(*transaction)
	if !ok || t.graph != g {
		return fmt.Errorf("scenegraph: foreign transaction")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.monitors = append(g.monitors, t.newMonitors...)
	t.newMonitors = nil

	if len(t.deltas) == 0 {
		return nil
	}

	touched := make(map[string]bool)
	for _, d := range t.deltas {
		switch d.Op {
		case OpSet:
			g.applySet(d)
		case OpRemove:
			g.removeSubtree(d.Path, touched)
		default:
			return fmt.Errorf("scenegraph: unknown delta op %q", d.Op)
		}
		touched[d.Path] = true
	}
	t.deltas = nil
	g.version++

	for _, mc := range g.monitors {
		mc.notify(touched)
	}
	return nil
}

func (g *Graph) applySet(d Delta) {
	n, ok := g.nodes[d.Path]
	if !ok {
		n = &node{attrs: cook.Attrs{}}
		g.nodes[d.Path] = n
	}
	if d.Type != "" {
		n.attrs[cook.AttrLeafType] = d.Type
	}
	if d.Parallel != nil {
		n.attrs[cook.AttrParallelTraversal] = *d.Parallel
	}
	if d.Marked != nil {
		n.attrs[cook.AttrLiveMarked] = *d.Marked
	}
	for k, v := range d.Attrs {
		n.attrs[k] = v
	}
	if d.Children != nil {
		n.children = append([]string(nil), d.Children...)
	}
	for _, c := range d.AddChildren {
		n.children = append(n.children, c)
	}
}

// removeSubtree drops path and every committed descendant, recording each
// removed path as touched so monitors hear about the whole subtree.
func (g *Graph) removeSubtree(path string, touched map[string]bool) {
	prefix := path + "/"
	for p := range g.nodes {
		if p == path || len(p) > len(prefix) && p[:len(prefix)] == prefix {
			delete(g.nodes, p)
			touched[p] = true
		}
	}
}
