// Package cook defines the boundary between the traversal engine and the
// runtime that materializes locations. The engine never interprets what a
// location is or how cooking computes its attributes; it only orchestrates
// traversal, scheduling, and delta reconciliation over these capabilities.
package cook

// Client is the capability required to cook locations.
//
// Cook may block (it is typically an expensive, I/O-bound operation). It may
// be called concurrently from multiple isolated contexts, but the engine
// guarantees it is never re-entered from the same context: a worker that is
// mid-cook for one location is never handed a second cook until the first
// returns. The evict flag is a hint that cached state for the path can be
// released after the call.
type Client interface {
	Cook(path string, evict bool) (NodeData, error)

	// Sync brings this client's view up to date with another client's
	// committed state, given the version watermark of the last sync.
	// It returns the new watermark.
	Sync(from Client, lastVersion uint64) (uint64, error)
}

// LocationEvent is one pending change notification from a MonitorClient.
// HasData reports whether the event carries freshly cooked node data.
type LocationEvent struct {
	Path    string
	HasData bool
	Data    NodeData
}

// MonitorClient extends Client with change-notification capabilities used
// by the monitoring traversal.
type MonitorClient interface {
	Client

	// SetLocationsActive registers interest in change notifications for
	// the given location paths.
	SetLocationsActive(paths []string) error

	// LocationEvents drains up to max pending change events. It does not
	// block; an empty slice means no events are pending.
	LocationEvents(max int) ([]LocationEvent, error)
}
