package session

// EventKind identifies a step of a refresh cycle.
type EventKind int

const (
	EventRefreshStarted EventKind = iota
	EventQueued
	EventRefreshSucceeded
	EventRefreshFailed
	EventReleased
)

func (k EventKind) String() string {
	switch k {
	case EventRefreshStarted:
		return "refresh started"
	case EventQueued:
		return "queued"
	case EventRefreshSucceeded:
		return "refresh succeeded"
	case EventRefreshFailed:
		return "refresh failed"
	case EventReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Event is a guard lifecycle notification.
//
// RequestID is set for queued and released requests, Err for failures and releases after a failed refresh.
type Event struct {
	Kind      EventKind
	RequestID string
	Request   Request
	Err       error
}
