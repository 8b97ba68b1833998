// Package kafka carries record change events over Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/eventstream"
)

// DefaultTopic is the topic record change events are written to.
const DefaultTopic = "nook.record.changed"

// Config configures the Kafka publisher and subscriber.
type Config struct {
	Brokers []string
	Topic   string

	// GroupID is the consumer group subscribers join.
	GroupID string
}

func (c Config) topic() string {
	if c.Topic == "" {
		return DefaultTopic
	}
	return c.Topic
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes record change events keyed by namespace so every change
// of one business lands on the same partition.
type Publisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewPublisher creates a publisher for the configured brokers.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.topic(),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return &Publisher{writer: w, logger: logger}, nil
}

// PublishRecordChanged encodes and writes one event.
func (p *Publisher) PublishRecordChanged(ctx context.Context, event *eventstream.RecordChangedEvent) error {
	if event == nil {
		return eventstream.ErrNilRecordEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding record event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.NamespaceID),
		Value: payload,
		Time:  event.EmittedAt,
	})
	if err != nil {
		return fmt.Errorf("publishing record event: %w", err)
	}

	p.logger.Debug("published record event",
		zap.String("event_id", event.EventID),
		zap.String("namespace", event.NamespaceID),
	)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
