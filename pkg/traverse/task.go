package traverse

import (
	"canopy/pkg/cook"
)

// spawnExpand enqueues an expansion task for path. The callback rides along
// so forked subtrees keep (or drop) the pre-cook hook independently.
func (t *Traversal) spawnExpand(path string, cb preCookFn) {
	t.pool.spawn(func(w *worker) {
		t.expand(w, path, cb)
	})
}

// expand cooks path and walks downward, reusing this task in place wherever
// possible: a single child, or the first of many children, continues in this
// loop on the same worker instead of going back through the scheduler. Only
// the second and later children of a parallel fan-out become new tasks.
//
// A cook error or panic terminates this task's line of work only; sibling
// tasks and the overall traversal are unaffected.
func (t *Traversal) expand(w *worker, path string, cb preCookFn) {
	for path != "" {
		if cb != nil && !cb(w.id, path) {
			// hook opted out for this subtree
			cb = nil
		}

		data, err := t.cookClientFor(w).Cook(path, t.hooks.evictAfterCook())
		if err != nil {
			t.taskFailed(path, err)
			return
		}
		if !data.Exists {
			// not an error: the tree simply ends here
			return
		}

		t.queue.Push(data)

		children := data.PotentialChildren
		switch {
		case len(children) == 0:
			return

		case len(children) == 1:
			// Recycle: continue as the only child on this worker.
			path = cook.ChildPath(path, children[0])

		default:
			if !data.ParallelTraversalEnabled() {
				t.expandSerial(w, path, data, cb)
				return
			}
			// Fan out all but the first child as stealable work and
			// recycle this task to the first.
			for _, name := range children[1:] {
				t.spawnExpand(cook.ChildPath(path, name), cb)
			}
			path = cook.ChildPath(path, children[0])
		}
	}
}

// serialFrame is one pending location in a serial subtree walk.
type serialFrame struct {
	path     string
	callback bool // invoke the pre-cook hook for this path
}

// expandSerial walks parent's entire subtree depth-first on the current
// worker. parent itself is already cooked. If a descendant re-enables
// parallel traversal, its children are fanned out as new tasks immediately
// while the serial walk continues with the rest of the local stack.
func (t *Traversal) expandSerial(w *worker, parent string, parentData cook.NodeData, cb preCookFn) {
	stack := make([]serialFrame, 0, len(parentData.PotentialChildren))
	for _, name := range parentData.PotentialChildren {
		stack = append(stack, serialFrame{path: cook.ChildPath(parent, name), callback: cb != nil})
	}

	evict := t.hooks.evictAfterCook()

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		callbackOnChildren := false
		if fr.callback {
			callbackOnChildren = cb(w.id, fr.path)
		}

		data, err := t.cookClientFor(w).Cook(fr.path, evict)
		if err != nil {
			// Same policy as the parallel branch: this line of work ends,
			// including whatever is still on the local stack.
			t.taskFailed(fr.path, err)
			return
		}
		if !data.Exists {
			continue
		}

		t.queue.Push(data)

		if len(data.PotentialChildren) == 0 {
			continue
		}

		if data.ParallelTraversalEnabled() {
			var childCb preCookFn
			if callbackOnChildren {
				childCb = cb
			}
			for _, name := range data.PotentialChildren {
				t.spawnExpand(cook.ChildPath(fr.path, name), childCb)
			}
		} else {
			for _, name := range data.PotentialChildren {
				stack = append(stack, serialFrame{path: cook.ChildPath(fr.path, name), callback: callbackOnChildren})
			}
		}
	}
}
