package traverse

import "errors"

// Misuse errors. These are returned synchronously to the caller; per-task
// cook failures are never surfaced this way (see the task error hook).
var (
	// ErrNilClient is returned when a traversal is constructed without a
	// cook client.
	ErrNilClient = errors.New("traverse: cook client is nil")

	// ErrNilRuntime is returned when a traversal is constructed without a
	// runtime.
	ErrNilRuntime = errors.New("traverse: runtime is nil")

	// ErrNotComplete is returned when delta processing is requested before
	// the initial traversal has completed.
	ErrNotComplete = errors.New("traverse: initial traversal not complete")

	// ErrMonitorWithoutCook means a worker registered monitors without ever
	// cooking. The initial traversal cannot produce that state unless the
	// scheduler is broken, so it is a structural invariant violation.
	ErrMonitorWithoutCook = errors.New("traverse: monitor worker has no paired cook worker")
)
