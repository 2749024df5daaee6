package traverse

import (
	"slices"
	"sort"
)

// UnmonitoredChildren computes exactly the names in current that have never
// been registered for monitoring, given the children seen when the parent
// was first observed (original) and at its most recent observation
// (previous).
//
// During the initial traversal every original child was monitored, so when
// the child list changes only the newly appeared names need registering.
// Repeated calls with an unchanged current therefore yield nothing: after
// the caller folds current into previous, every name in it is monitored.
func UnmonitoredChildren(original, previous, current []string) []string {
	if len(current) == 0 {
		return nil
	}

	origSameAsPrevious := equalAsSets(original, previous)

	// First time any children were seen: all of them are new.
	if origSameAsPrevious && len(previous) == 0 {
		return slices.Clone(current)
	}

	var monitored []string
	if origSameAsPrevious {
		monitored = sortedClone(previous)
	} else {
		monitored = sortedUnion(original, previous)
	}

	return sortedDifference(sortedClone(current), monitored)
}

func sortedClone(names []string) []string {
	s := slices.Clone(names)
	sort.Strings(s)
	return s
}

func equalAsSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return slices.Equal(sortedClone(a), sortedClone(b))
}

// sortedUnion merges two unsorted name lists into a sorted de-duplicated one.
func sortedUnion(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Strings(out)
	return slices.Compact(out)
}

// sortedDifference returns the elements of a not present in b. Both inputs
// must be sorted; a is modified in place.
func sortedDifference(a, b []string) []string {
	out := a[:0]
	i := 0
	for _, name := range a {
		for i < len(b) && b[i] < name {
			i++
		}
		if i < len(b) && b[i] == name {
			continue
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
