package eventstream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRecordChanged is emitted after a business record is written.
	EventTypeRecordChanged = "nook.record.changed"
)

// Op is the kind of change applied to a record.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// RecordChangedEvent is a transport-neutral event payload announcing that a
// business record changed and its namespace needs re-indexing.
type RecordChangedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	NamespaceID   string    `json:"namespace_id"`
	RecordType    string    `json:"record_type,omitempty"`
	RecordID      string    `json:"record_id,omitempty"`
	Op            Op        `json:"op"`
}

// NewRecordChangedEvent builds a v1 event with a fresh id.
func NewRecordChangedEvent(namespaceID, recordType, recordID string, op Op) *RecordChangedEvent {
	return &RecordChangedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRecordChanged,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		NamespaceID:   namespaceID,
		RecordType:    recordType,
		RecordID:      recordID,
		Op:            op,
	}
}

// Decode parses and validates a record change payload.
func Decode(payload []byte) (RecordChangedEvent, error) {
	var event RecordChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return RecordChangedEvent{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if event.EventType != EventTypeRecordChanged {
		return RecordChangedEvent{}, fmt.Errorf("%w: unexpected event type %q", ErrInvalidEvent, event.EventType)
	}
	if event.NamespaceID == "" {
		return RecordChangedEvent{}, fmt.Errorf("%w: missing namespace id", ErrInvalidEvent)
	}
	return event, nil
}
