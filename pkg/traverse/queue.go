package traverse

import (
	"sync"

	"canopy/pkg/cook"
)

// ResultQueue hands cooked node data from traversal workers to the pull-based
// consumer. Pushes never block; pulls block until at least one item exists or
// the owning traversal has completed, at which point they return immediately
// (possibly empty). Items are delivered exactly once, in FIFO order.
type ResultQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []cook.NodeData
	closed bool
}

func NewResultQueue() *ResultQueue {
	q := &ResultQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends one item. Safe to call concurrently from any number of tasks.
func (q *ResultQueue) Push(d cook.NodeData) {
	q.mu.Lock()
	q.items = append(q.items, d)
	q.mu.Unlock()
	q.cond.Signal()
}

// PullOne removes and returns the oldest queued item. It blocks until an item
// is available or the queue is closed; ok is false only when the queue was
// closed and empty. There is no timeout: if a cook never returns, neither
// does PullOne.
func (q *ResultQueue) PullOne() (d cook.NodeData, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return cook.NodeData{}, false
	}
	d = q.items[0]
	q.items = q.items[1:]
	return d, true
}

// PullAll atomically drains every queued item, preserving the order they
// were pushed. Blocking behavior matches PullOne.
func (q *ResultQueue) PullAll() []cook.NodeData {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	items := q.items
	q.items = nil
	return items
}

// Len reports the number of currently queued items.
func (q *ResultQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// close wakes all blocked pulls. Called exactly once, when the traversal
// completes. Pushes after close are still accepted (monitoring re-cooks do
// not go through the queue, but the contract costs nothing to keep).
func (q *ResultQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
