// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"bookstore-service/internal/entity"
)

const (
	EventOrderCreated         = "order.created"
	EventPaymentStatusChanged = "order.payment_status_changed"
)

const producerName = "bookstore-api"

type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

type OrderItemPayload struct {
	BookID   int64           `json:"book_id"`
	ItemType entity.ItemType `json:"item_type"`
	Price    decimal.Decimal `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID     int64              `json:"order_id"`
	UserID      int64              `json:"user_id"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Items       []OrderItemPayload `json:"items"`
}

type PaymentStatusChangedPayload struct {
	OrderID int64                `json:"order_id"`
	From    entity.PaymentStatus `json:"from"`
	To      entity.PaymentStatus `json:"to"`
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	w   MessageWriter
	now func() time.Time
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{w: w, now: time.Now}
}

func (p *Publisher) OrderCreated(ctx context.Context, order entity.Order, items []entity.OrderItem) error {
	payload := OrderCreatedPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       make([]OrderItemPayload, 0, len(items)),
	}
	for _, it := range items {
		payload.Items = append(payload.Items, OrderItemPayload{BookID: it.BookID, ItemType: it.ItemType, Price: it.Price})
	}
	return p.publish(ctx, EventOrderCreated, "created", order.ID, payload)
}

func (p *Publisher) PaymentStatusChanged(ctx context.Context, orderID int64, from, to entity.PaymentStatus) error {
	payload := PaymentStatusChangedPayload{OrderID: orderID, From: from, To: to}
	return p.publish(ctx, EventPaymentStatusChanged, "payment", orderID, payload)
}

func (p *Publisher) publish(ctx context.Context, eventType, keyKind string, orderID int64, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: p.now().UTC(),
		Producer:   producerName,
		Payload:    raw,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	// order-created-1 or order-payment-1
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%s-%d", keyKind, orderID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	return p.w.WriteMessages(ctx, msg)
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) OrderCreated(context.Context, entity.Order, []entity.OrderItem) error { return nil }

func (Nop) PaymentStatusChanged(context.Context, int64, entity.PaymentStatus, entity.PaymentStatus) error {
	return nil
}
