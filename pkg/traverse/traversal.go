// Package traverse fully expands a tree of lazily-discovered locations below
// a root by repeatedly cooking nodes through an external client, collecting
// results for a pull-based consumer. A monitoring variant keeps the expanded
// tree alive and re-expands only what incremental deltas changed.
//
// Expansion is parallel by default. A node whose cooked attributes set
// "parallel-traversal-enabled" to false has its whole subtree walked serially
// on the worker that cooked it, until a descendant re-enables parallelism.
package traverse

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"canopy/internal/logging"
	"canopy/pkg/cook"
)

// State tracks a traversal's lifecycle. Progression is monotonic:
// INITIALIZING → RUNNING → COMPLETE, with the monitoring states reachable
// only from COMPLETE. A traversal never returns to RUNNING.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateComplete
	StateMonitoring
	StatePartialMonitoring
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateRunning:
		return "RUNNING"
	case StateComplete:
		return "COMPLETE"
	case StateMonitoring:
		return "MONITORING"
	case StatePartialMonitoring:
		return "PARTIAL_MONITORING"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// preCookFn is invoked with each path before it is cooked. The return value
// says whether the hook should also run for that path's children.
type preCookFn func(workerID int, path string) bool

// expansionHooks are the extension points the monitoring variant overrides.
type expansionHooks interface {
	initWorkerState(workers int)
	preCookCallback() preCookFn
	evictAfterCook() bool
	onTraversalComplete()
}

// DefaultRootLocationPath is where traversal starts unless overridden.
const DefaultRootLocationPath = "/root"

// Traversal expands the tree below a root location and holds each cooked
// NodeData until the consumer retrieves it. Construct with New or
// NewFromRuntime, then drain with GetLocation/GetLocations; the first pull
// lazily starts the expansion.
type Traversal struct {
	state atomic.Int32

	root    string
	workers int

	// Single-client mode: client is used by every worker and must tolerate
	// concurrent cooks. Runtime mode: each worker lazily creates its own
	// client, recorded by worker ID so monitoring can harvest them later.
	client      cook.Client
	runtime     cook.Runtime
	cookOp      cook.Op
	cookClients []cook.Client

	queue *ResultQueue
	pool  *pool
	hooks expansionHooks

	taskErrHook func(path string, err error)
	log         *slog.Logger
}

// New creates a traversal around a caller-supplied cook client.
func New(client cook.Client) (*Traversal, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	t := newTraversal()
	t.client = client
	return t, nil
}

// NewFromRuntime creates a traversal whose workers cook through per-worker
// clients bound to cookOp on the given runtime.
func NewFromRuntime(rt cook.Runtime, cookOp cook.Op) (*Traversal, error) {
	if rt == nil {
		return nil, ErrNilRuntime
	}
	t := newTraversal()
	t.runtime = rt
	t.cookOp = cookOp
	return t, nil
}

func newTraversal() *Traversal {
	t := &Traversal{
		root:  DefaultRootLocationPath,
		queue: NewResultQueue(),
		log:   logging.New("traverse"),
	}
	t.hooks = t
	return t
}

// State returns the current lifecycle state.
func (t *Traversal) State() State {
	return State(t.state.Load())
}

// SetRootLocationPath sets where expansion starts. Silently ignored once the
// traversal has started.
func (t *Traversal) SetRootLocationPath(path string) {
	if t.State() == StateInitializing {
		t.root = path
	}
}

// RootLocationPath returns the configured root.
func (t *Traversal) RootLocationPath() string { return t.root }

// SetWorkerCount overrides the pool size (default runtime.NumCPU). Silently
// ignored once the traversal has started.
func (t *Traversal) SetWorkerCount(n int) {
	if t.State() == StateInitializing && n > 0 {
		t.workers = n
	}
}

// SetTaskErrorHook installs an observer for per-task failures. Failed
// subtrees are still absorbed silently from the consumer's point of view;
// the hook only adds visibility. Ignored once the traversal has started.
func (t *Traversal) SetTaskErrorHook(hook func(path string, err error)) {
	if t.State() == StateInitializing {
		t.taskErrHook = hook
	}
}

// GetLocation pops the oldest cooked entry, blocking until one is available
// or the traversal completes. ok is false only when expansion is complete
// and everything has been retrieved.
func (t *Traversal) GetLocation() (d cook.NodeData, ok bool) {
	t.startIfNeeded()
	return t.queue.PullOne()
}

// GetLocations drains all stored entries, blocking until at least one is
// available or the traversal completes. Entries appear in the order queued;
// no ordering is promised between sibling subtrees.
func (t *Traversal) GetLocations() []cook.NodeData {
	t.startIfNeeded()
	return t.queue.PullAll()
}

// IsValid returns false only when expansion is complete and all data has
// been retrieved.
func (t *Traversal) IsValid() bool {
	if t.State() == StateComplete {
		return t.queue.Len() > 0
	}
	return true
}

// startIfNeeded performs the one-shot INITIALIZING → RUNNING transition.
// Exactly one caller wins the CAS and runs initialize.
func (t *Traversal) startIfNeeded() {
	if t.state.CompareAndSwap(int32(StateInitializing), int32(StateRunning)) {
		t.initialize()
	}
}

// initialize spawns the root task. The pool's drain callback fires once the
// root task and every recycled/forked descendant has finished.
func (t *Traversal) initialize() {
	n := t.workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	t.hooks.initWorkerState(n)
	t.pool = newPool(n, t.hooks.onTraversalComplete, func(r any) {
		t.taskFailed("", fmt.Errorf("task panic: %v", r))
	})
	t.spawnExpand(t.root, t.hooks.preCookCallback())
}

// cookClientFor returns the cook client for a worker, creating the
// per-worker client on first use in runtime mode. Each slot is touched only
// by its own worker, so no locking is needed.
func (t *Traversal) cookClientFor(w *worker) cook.Client {
	if t.client != nil {
		return t.client
	}
	if t.cookClients[w.id] == nil {
		txn := t.runtime.NewTransaction()
		c := txn.NewClient(t.cookOp)
		if err := t.runtime.Commit(txn); err != nil {
			panic(fmt.Errorf("create cook client: %w", err))
		}
		t.cookClients[w.id] = c
	}
	return t.cookClients[w.id]
}

// taskFailed implements the per-task failure policy: log, notify the hook,
// and let the rest of the traversal proceed.
func (t *Traversal) taskFailed(path string, err error) {
	t.log.Error("traversal task failed", "path", path, "error", err)
	if t.taskErrHook != nil {
		t.taskErrHook(path, err)
	}
}

// Base implementations of the extension points.

func (t *Traversal) initWorkerState(workers int) {
	if t.runtime != nil {
		t.cookClients = make([]cook.Client, workers)
	}
}

func (t *Traversal) preCookCallback() preCookFn { return nil }

// evictAfterCook tells the cook client to release cached node state after
// each cook. The initial pass evicts to bound memory; the monitoring variant
// must not, since deltas need the materialized state to stay addressable.
func (t *Traversal) evictAfterCook() bool { return true }

func (t *Traversal) onTraversalComplete() {
	t.state.Store(int32(StateComplete))
	t.queue.close()
}
