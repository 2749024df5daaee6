package cook

// Attribute names the traversal engine reads from cooked node data.
// The values are owned by whatever attribute model the runtime uses;
// only their meaning is defined here.
const (
	// AttrParallelTraversal selects the parallel vs. serial expansion
	// branch for a node's children. Defaults to true when absent.
	AttrParallelTraversal = "parallel-traversal-enabled"

	// AttrLiveMarked marks a node for inclusion/exclusion during
	// partial monitoring. Defaults to false when absent.
	AttrLiveMarked = "live-marked"

	// AttrLeafType is the node type compared against the configured
	// leaf type to decide which changed nodes get a full subtree re-cook.
	AttrLeafType = "leaf-type"
)

// Attrs is the opaque attribute bag attached to a cooked node. Keys and
// value types are owned by the runtime; the engine only reads the toggles
// declared above through the typed accessors.
type Attrs map[string]any

// Bool returns the named attribute as a bool, or def if the attribute is
// absent or not a bool. Integer values are accepted as 0/non-0 since some
// runtimes represent flags numerically.
func (a Attrs) Bool(name string, def bool) bool {
	v, ok := a[name]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}
	return def
}

// String returns the named attribute as a string, or def if absent or
// not a string.
func (a Attrs) String(name, def string) string {
	if v, ok := a[name].(string); ok {
		return v
	}
	return def
}

// Clone returns a shallow copy of the bag. Useful for runtimes that hand
// the same underlying map to multiple clients.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	cp := make(Attrs, len(a))
	for k, v := range a {
		cp[k] = v
	}
	return cp
}
