package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/segmentio/kafka-go"
)

var ErrDisabled = errors.New("kafka: no brokers configured")

const (
	headerEventName = "event-name"
	componentRelay  = "kafka_relay"
)

// MessageWriter is the part of *kafka.Writer the relay uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the JSON value written for every event.
type Envelope struct {
	Event       string          `json:"event"`
	Key         string          `json:"key"`
	PublishedAt time.Time       `json:"published_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Relay forwards domain events to a Kafka topic, keyed by aggregate id so
// events of one order stay on one partition.
type Relay struct {
	writer MessageWriter
	topic  string
	log    observability.Logger
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

// NewRelay dials nothing up front; the writer connects lazily on first write.
func NewRelay(brokers []string, topic string, logger observability.Logger) (*Relay, error) {
	if len(brokers) == 0 {
		return nil, ErrDisabled
	}
	if topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	return NewRelayWithWriter(NewWriter(brokers, topic), topic, logger), nil
}

func NewRelayWithWriter(w MessageWriter, topic string, logger observability.Logger) *Relay {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Relay{
		writer: w,
		topic:  topic,
		log:    logger.With(observability.F("component", componentRelay), observability.F("topic", topic)),
	}
}

func (r *Relay) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka: encode %s: %w", e.EventName(), err)
	}
	key := domoutbox.KeyOf(e)
	value, err := json.Marshal(Envelope{
		Event:       e.EventName(),
		Key:         key,
		PublishedAt: time.Now().UTC(),
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("kafka: encode envelope: %w", err)
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Time:    time.Now().UTC(),
		Headers: []kafka.Header{{Key: headerEventName, Value: []byte(e.EventName())}},
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		logctx.FromOr(ctx, r.log).Warn("kafka_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("key", key),
			observability.Err(err),
		)
		return fmt.Errorf("kafka: write %s: %w", e.EventName(), err)
	}
	return nil
}

func (r *Relay) Close() error {
	return r.writer.Close()
}
