package kafka

import (
	"context"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/eventstream"
)

// DefaultGroupID is the consumer group used when none is configured.
const DefaultGroupID = "nook-reconcile"

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Subscriber reads record change events and forwards them to an inbox.
type Subscriber struct {
	reader messageReader
	logger *zap.Logger
}

// NewSubscriber joins the configured consumer group.
func NewSubscriber(c Config, logger *zap.Logger) (*Subscriber, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	groupID := c.GroupID
	if groupID == "" {
		groupID = DefaultGroupID
	}

	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  c.Brokers,
		GroupID:  groupID,
		Topic:    c.topic(),
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	return &Subscriber{reader: r, logger: logger}, nil
}

// Run consumes until ctx is cancelled. Each decoded event is sent to inbox
// before its offset is committed. Malformed messages are logged and
// committed so they are not redelivered.
func (s *Subscriber) Run(ctx context.Context, inbox chan<- eventstream.RecordChangedEvent) error {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetching record event: %w", err)
		}

		event, err := eventstream.Decode(msg.Value)
		if err != nil {
			s.logger.Warn("dropping malformed record event",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		} else {
			select {
			case inbox <- event:
			case <-ctx.Done():
				return nil
			}
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("committing record event: %w", err)
		}
	}
}

// Close leaves the consumer group.
func (s *Subscriber) Close() error {
	return s.reader.Close()
}
