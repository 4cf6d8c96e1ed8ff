// Package events publishes repayment lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeScheduleGenerated Type = "schedule.generated"
	TypePaymentRecorded   Type = "payment.recorded"
	TypePeriodOverdue     Type = "period.overdue"
	TypePaymentReminder   Type = "payment.reminder"
	TypeLoanCompleted     Type = "loan.completed"
)

// Event is the envelope written to the topic, keyed by loan ID so one loan's
// events stay ordered on a partition.
type Event struct {
	ID           uuid.UUID        `json:"id"`
	Type         Type             `json:"type"`
	LoanID       uuid.UUID        `json:"loan_id"`
	PeriodNumber int              `json:"period_number,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	Status       string           `json:"status,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

func New(eventType Type, loanID uuid.UUID, now time.Time) Event {
	return Event{ID: uuid.New(), Type: eventType, LoanID: loanID, OccurredAt: now}
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// KafkaPublisher writes events to a single topic.
type KafkaPublisher struct {
	mu     sync.Mutex
	writer *kafka.Writer
	closed bool
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := Encode(events...)
	if err != nil {
		return err
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return fmt.Errorf("kafka publish to %s: publisher closed", p.writer.Topic)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.writer.Topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// Encode turns events into kafka messages keyed by loan ID.
func Encode(events ...Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		body, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode event %s: %w", e.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.LoanID.String()),
			Value: body,
			Time:  e.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(e.Type)},
			},
		})
	}
	return msgs, nil
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }
func (NopPublisher) Close() error                            { return nil }
