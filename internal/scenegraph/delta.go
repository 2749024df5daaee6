package scenegraph

// Delta ops understood by the graph's transaction parser.
const (
	OpSet    = "set"
	OpRemove = "remove"
)

// Delta is the scenegraph's wire format for one incremental change. OpSet
// creates or updates a node: non-zero fields overwrite, Children (when
// non-nil) replaces the child list wholesale, AddChildren appends. OpRemove
// drops the node and its entire subtree.
type Delta struct {
	Op          string
	Path        string
	Type        string
	Parallel    *bool
	Marked      *bool
	Attrs       map[string]any
	Children    []string
	AddChildren []string
}
