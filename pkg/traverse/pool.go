package traverse

import (
	"sync"
)

// taskFn is one schedulable unit of work. The worker it runs on is passed in
// so tasks can reach worker-indexed state without locking.
type taskFn func(w *worker)

// worker is one pool goroutine. IDs are stable for the pool's lifetime and
// index the per-worker registries kept by the traversal (clients, active
// location maps). A worker runs exactly one task at a time, so a cook call
// in flight on a worker can never be re-entered by another task.
type worker struct {
	id   int
	pool *pool
}

// pool is a fixed-size worker pool with a shared LIFO run queue. LIFO keeps
// expansion roughly depth-first, which bounds the queue to the tree depth
// times the fan-out instead of the whole frontier.
//
// The pool counts outstanding tasks; when the count reaches zero the drain
// callback fires exactly once and the workers shut down. Task recycling is
// expressed by tasks looping inline instead of re-submitting themselves, so
// a recycled chain is a single outstanding task from the pool's view.
type pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []taskFn
	pending int
	stopped bool

	onDrain func()
	onPanic func(r any)
}

func newPool(workers int, onDrain func(), onPanic func(r any)) *pool {
	p := &pool{onDrain: onDrain, onPanic: onPanic}
	p.cond = sync.NewCond(&p.mu)
	for id := 0; id < workers; id++ {
		w := &worker{id: id, pool: p}
		go p.run(w)
	}
	return p
}

// spawn enqueues a task for any idle worker. Never blocks, so tasks can fan
// out from inside a worker without deadlock.
func (p *pool) spawn(t taskFn) {
	p.mu.Lock()
	p.pending++
	p.queue = append(p.queue, t)
	p.mu.Unlock()
	p.cond.Signal()
}

func (p *pool) run(w *worker) {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped && len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		t := p.queue[len(p.queue)-1]
		p.queue = p.queue[:len(p.queue)-1]
		p.mu.Unlock()

		p.exec(w, t)

		p.mu.Lock()
		p.pending--
		drained := p.pending == 0 && !p.stopped
		if drained {
			p.stopped = true
		}
		p.mu.Unlock()

		if drained {
			p.cond.Broadcast()
			if p.onDrain != nil {
				p.onDrain()
			}
		}
	}
}

// exec runs one task, absorbing panics so a single bad subtree cannot take
// the whole traversal down.
func (p *pool) exec(w *worker, t taskFn) {
	defer func() {
		if r := recover(); r != nil && p.onPanic != nil {
			p.onPanic(r)
		}
	}()
	t(w)
}
