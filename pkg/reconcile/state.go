package reconcile

// State is where a namespace sits in the synchronization lifecycle.
type State int

const (
	Idle State = iota
	Queued
	Running
	RetryPending
	Abandoned
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Queued:
		return "queued"
	case Running:
		return "running"
	case RetryPending:
		return "retry_pending"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}
