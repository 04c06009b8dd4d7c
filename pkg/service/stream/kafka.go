package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher mirrors activity entries to a Kafka topic keyed by event ID, so
// entries of one event stay in one partition and keep their order.
type Publisher struct {
	writer messageWriter
}

var _ interfaces.ActivityPublisher = &Publisher{}

func New(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, goerr.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, goerr.New("kafka topic is required")
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	})
	return &Publisher{writer: writer}, nil
}

type activityMessage struct {
	EventID     model.EventID  `json:"event_id"`
	Seq         int64          `json:"seq"`
	Timestamp   time.Time      `json:"timestamp"`
	Actor       string         `json:"actor"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
}

func (p *Publisher) Publish(ctx context.Context, e *model.ActivityEntry) error {
	raw, err := json.Marshal(activityMessage{
		EventID:     e.EventID,
		Seq:         e.Seq,
		Timestamp:   e.Timestamp,
		Actor:       e.Actor,
		Type:        string(e.Type),
		Description: e.Description,
		Details:     e.Details,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal activity entry")
	}

	msg := kafka.Message{
		Key:   []byte(e.EventID),
		Value: raw,
		Headers: []kafka.Header{
			{Key: "activity_type", Value: []byte(e.Type)},
		},
		Time: e.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return goerr.Wrap(err, "failed to publish activity entry",
			goerr.V(model.EventIDKey, e.EventID),
			goerr.V("seq", e.Seq))
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
