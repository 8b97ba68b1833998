// Package nop provides an eventstream publisher for deployments without a
// broker. Events are validated and dropped.
package nop

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/eventstream"
)

// Publisher drops record change events after validating them.
type Publisher struct {
	logger  *zap.Logger
	dropped atomic.Uint64
}

// NewPublisher creates a publisher that logs each dropped event at debug level.
func NewPublisher(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger}
}

// PublishRecordChanged drops event. A nil event or one without a namespace is
// rejected the same way a real broker publisher would.
func (p *Publisher) PublishRecordChanged(_ context.Context, event *eventstream.RecordChangedEvent) error {
	if event == nil {
		return eventstream.ErrNilRecordEvent
	}
	if event.NamespaceID == "" {
		return eventstream.ErrInvalidEvent
	}

	p.dropped.Add(1)
	p.logger.Debug("no event broker configured, dropping record change",
		zap.String("namespace_id", event.NamespaceID),
		zap.String("record_type", event.RecordType),
		zap.String("op", string(event.Op)),
	)
	return nil
}

// Dropped returns the number of events accepted and discarded.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
