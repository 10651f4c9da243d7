// README: Logical event publishing to Kafka (delivery mechanism for the notification service).
package notify

import (
	"context"
	"encoding/json"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"kurier/internal/types"
)

const (
	EventOrderAccepted       = "order.accepted"
	EventOrderDelivered      = "order.delivered"
	EventCancellationCreated = "cancellation.created"
	EventPenaltyCreated      = "penalty.created"
)

type Event struct {
	Name       string          `json:"name"`
	OrderID    types.ID        `json:"order_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher writes logical events to the notification topic. Publishing is
// best effort: a broker outage must not fail the order operation that
// produced the event.
type Publisher struct {
	writer *kafka.Writer
	logger *logrus.Entry
}

func NewPublisher(writer *kafka.Writer, logger *logrus.Entry) *Publisher {
	return &Publisher{writer: writer, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, name string, orderID types.ID, payload any) {
	if p == nil || p.writer == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("event", name).Warn("marshal event payload")
		return
	}
	ev := Event{Name: name, OrderID: orderID, Payload: raw, OccurredAt: time.Now().UTC()}
	msg, err := json.Marshal(ev)
	if err != nil {
		p.logger.WithError(err).WithField("event", name).Warn("marshal event")
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orderID),
		Value: msg,
	}); err != nil {
		p.logger.WithError(err).WithField("event", name).Warn("publish event")
	}
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
