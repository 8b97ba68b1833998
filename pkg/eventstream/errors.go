package eventstream

import "errors"

var (
	// ErrNilRecordEvent indicates a nil record event payload was provided to a publisher.
	ErrNilRecordEvent = errors.New("nil record event")

	// ErrInvalidEvent indicates a payload that is not a usable record change event.
	ErrInvalidEvent = errors.New("invalid record event")
)
