package eventstream

import "context"

// Publisher publishes record change events to an event stream backend.
type Publisher interface {
	PublishRecordChanged(ctx context.Context, event *RecordChangedEvent) error
	Close() error
}
