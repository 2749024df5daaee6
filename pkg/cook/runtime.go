package cook

// Op identifies an operation graph a client cooks through. The runtime owns
// what an op means; the engine only threads op handles from its constructors
// into client creation.
type Op struct {
	Name string
}

// Delta is an externally-formatted incremental change to the committed
// graph. The engine treats it as opaque; the runtime's transaction parses it.
type Delta any

// Transaction batches client creation and delta parsing until committed.
type Transaction interface {
	// NewClient creates a client bound to the given op. The client becomes
	// usable once the transaction commits.
	NewClient(op Op) Client

	// NewMonitorClient creates a monitoring client bound to the given op.
	NewMonitorClient(op Op) MonitorClient

	// ParseDelta merges one delta into the transaction. Deltas are applied
	// in the order parsed, so later deltas win on conflicting updates.
	ParseDelta(d Delta) error
}

// Runtime is the capability required to create clients and commit deltas.
type Runtime interface {
	NewTransaction() Transaction
	Commit(txn Transaction) error
}
