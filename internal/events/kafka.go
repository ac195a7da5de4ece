package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ai-judge/internal/schemas"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher announces every persisted evaluation on a kafka topic.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *Publisher) EvaluationAppended(ctx context.Context, e schemas.Evaluation) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal evaluation event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.SubmissionID),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("send evaluation event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event; used when no brokers are configured.
type Nop struct{}

func (Nop) EvaluationAppended(context.Context, schemas.Evaluation) error { return nil }
func (Nop) Close() error                                                 { return nil }
