package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/rl1809/inventory/internal/core/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CompensationFailedEvent asks an operator to correct inventory that could
// not be restored automatically.
type CompensationFailedEvent struct {
	OrderID             int64                       `json:"order_id,omitempty"`
	FulfillmentLocation *domain.FulfillmentLocation `json:"fulfillment_location,omitempty"`
	Decremented         domain.SkuQuantities        `json:"decremented,omitempty"`
	Incremented         domain.SkuQuantities        `json:"incremented,omitempty"`
	Cause               string                      `json:"cause"`
	OccurredAt          time.Time                   `json:"occurred_at"`
}

// KafkaAlerter publishes CompensationFailedEvent messages keyed by order id.
type KafkaAlerter struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaAlerter(writer messageWriter) *KafkaAlerter {
	return &KafkaAlerter{writer: writer, now: time.Now}
}

// NewKafkaWriter builds the writer used for alerts.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func (a *KafkaAlerter) CompensationFailed(ctx context.Context, state domain.RollbackState, cause error) error {
	event := CompensationFailedEvent{
		OrderID:             state.OrderID,
		FulfillmentLocation: state.FulfillmentLocation,
		Decremented:         state.Decremented,
		Incremented:         state.Incremented,
		OccurredAt:          a.now().UTC(),
	}
	if cause != nil {
		event.Cause = cause.Error()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal compensation event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(state.OrderID, 10)),
		Value: payload,
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})

	if err := a.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish compensation event: %w", err)
	}
	return nil
}

func (a *KafkaAlerter) Close() error {
	return a.writer.Close()
}

// headerCarrier lets the otel propagator write trace headers onto a message.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
