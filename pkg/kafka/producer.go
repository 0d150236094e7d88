package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// Publisher is what domain event producers depend on, so a disabled broker
// can be swapped for NopPublisher.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	Async        bool
}

// DefaultProducerConfig returns synchronous, low-latency writer settings.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

var publishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_producer_messages_published_total",
		Help: "Kafka messages published, by topic and outcome",
	},
	[]string{"topic", "outcome"},
)

// RegisterMetrics registers the producer counters with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(publishedTotal)
}

// Producer wraps the kafka-go writer for publishing events.
type Producer struct {
	writer  *kafka.Writer
	brokers []string
	logger  *slog.Logger
}

// NewProducer creates a Kafka producer. No connection is made until the
// first Publish.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Async:        cfg.Async,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{
		writer:  w,
		brokers: cfg.Brokers,
		logger:  logger,
	}
}

// BuildMessage converts an event into a kafka message keyed by aggregate id,
// with the trace context injected into the headers.
func BuildMessage(ctx context.Context, topic string, event *Event) (kafka.Message, error) {
	data, err := event.Marshal()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.AggregateID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}
	if event.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "correlation_id", Value: []byte(event.CorrelationID)})
	}

	otel.GetTextMapPropagator().Inject(ctx, &HeaderCarrier{Headers: &msg.Headers})
	return msg, nil
}

// Publish sends an event to the given topic.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	msg, err := BuildMessage(ctx, topic, event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		publishedTotal.WithLabelValues(topic, "error").Inc()
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}
	publishedTotal.WithLabelValues(topic, "ok").Inc()

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}

// Ping checks that at least one broker is reachable.
func (p *Producer) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", lastErr)
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. It is used when Kafka is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, *Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
