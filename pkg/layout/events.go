package layout

// EventKind enumerates the optimizer lifecycle notifications. A fixed set of
// kinds keeps the contract enumerable, instead of ad hoc optional callback
// fields threaded through every layer.
type EventKind int

const (
	// EventProgress fires after each completed epoch batch.
	EventProgress EventKind = iota
	// EventComplete fires once when the epoch budget is exhausted.
	EventComplete
	// EventError fires for programmer errors surfaced asynchronously.
	EventError
)

// Event carries one optimizer notification.
type Event struct {
	Kind        EventKind
	Epoch       int
	TotalEpochs int
	Err         error
}

// Observer receives optimizer events. Implementations must be cheap; they
// run synchronously inside the frame loop.
type Observer interface {
	HandleLayoutEvent(Event)
}
