package cook

// NodeData is the result of cooking one location: whether it exists, its
// attribute bag, and the ordered names of its potential children. A cook
// produces it exactly once; after that it is immutable and ownership passes
// from the producing task to the result queue to the consumer.
type NodeData struct {
	Path              string
	Exists            bool
	Attrs             Attrs
	PotentialChildren []string
}

// ChildPath joins a parent location path with a child name.
func ChildPath(parent, child string) string {
	return parent + "/" + child
}

// ParallelTraversalEnabled reports whether the node allows its children to
// be expanded in parallel. Absent attribute means enabled.
func (d NodeData) ParallelTraversalEnabled() bool {
	return d.Attrs.Bool(AttrParallelTraversal, true)
}

// LiveMarked reports whether the node is marked for partial monitoring.
func (d NodeData) LiveMarked() bool {
	return d.Attrs.Bool(AttrLiveMarked, false)
}

// LeafType returns the node's type attribute, or "" when untyped.
func (d NodeData) LeafType() string {
	return d.Attrs.String(AttrLeafType, "")
}
