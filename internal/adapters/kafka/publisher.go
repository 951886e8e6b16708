package kafkaad

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"campground_ingest/internal/domain"
)

// Writer is the part of *kafka.Writer the publisher uses; tests swap it out.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// InsertedEvent is the payload emitted once per newly created campground.
type InsertedEvent struct {
	Event      string            `json:"event"`
	ID         string            `json:"id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Campground domain.Campground `json:"campground"`
}

// Publisher emits "campground inserted" events keyed by campground id.
type Publisher struct {
	w   Writer
	now func() time.Time
}

func New(brokers []string, topic string) *Publisher {
	return NewWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	})
}

func NewWithWriter(w Writer) *Publisher {
	return &Publisher{w: w, now: time.Now}
}

func (p *Publisher) PublishInserted(ctx context.Context, c domain.Campground) error {
	body, err := json.Marshal(InsertedEvent{
		Event:      "campground.inserted",
		ID:         c.ID,
		OccurredAt: p.now().UTC(),
		Campground: c,
	})
	if err != nil {
		return fmt.Errorf("kafka: encode event %s: %w", c.ID, err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(c.ID), Value: body}); err != nil {
		return fmt.Errorf("kafka: publish %s: %w", c.ID, err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.w.Close() }
