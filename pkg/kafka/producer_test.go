package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/laocai-wudi/chunmpre.cn/pkg/logger"
)

type productPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestNewEvent_Fields(t *testing.T) {
	evt, err := NewEvent("catalog.product.created", "p1", "product", "catalog-service", productPayload{ID: "p1", Name: "圆度仪"})
	require.NoError(t, err)

	assert.NotEmpty(t, evt.EventID)
	assert.Equal(t, "catalog.product.created", evt.EventType)
	assert.Equal(t, "p1", evt.AggregateID)
	assert.Equal(t, 1, evt.Version)
	assert.False(t, evt.Timestamp.IsZero())

	var got productPayload
	require.NoError(t, evt.UnmarshalData(&got))
	assert.Equal(t, "圆度仪", got.Name)
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	_, err := NewEvent("x", "id", "t", "s", make(chan int))
	assert.Error(t, err)
}

func TestEvent_WithMetadata(t *testing.T) {
	evt := (&Event{}).WithMetadata("admin_id", "admin").WithCorrelationID("req-1")
	assert.Equal(t, "admin", evt.Metadata["admin_id"])
	assert.Equal(t, "req-1", evt.CorrelationID)
}

func TestBuildMessage_HeadersAndTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	evt, err := NewEvent("catalog.product.deleted", "p9", "product", "catalog-service", map[string]string{"id": "p9"})
	require.NoError(t, err)
	evt.WithCorrelationID("req-9")

	msg, err := BuildMessage(ctx, "catalog.product.deleted", evt)
	require.NoError(t, err)

	assert.Equal(t, []byte("p9"), msg.Key)
	carrier := &HeaderCarrier{Headers: &msg.Headers}
	assert.Equal(t, "catalog.product.deleted", carrier.Get("event_type"))
	assert.Equal(t, "req-9", carrier.Get("correlation_id"))
	assert.Contains(t, carrier.Get("traceparent"), traceID.String())

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, evt.EventID, decoded.EventID)
}

func TestHeaderCarrier_SetReplaces(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := &HeaderCarrier{Headers: &headers}
	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Empty(t, c.Get("missing"))
}

func TestProducer_PingWithoutBrokers(t *testing.T) {
	p := NewProducer(DefaultProducerConfig(nil), logger.Discard())
	err := p.Ping(context.Background())
	assert.ErrorContains(t, err, "no brokers")
	assert.NoError(t, p.Close())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "t", &Event{}))
	assert.NoError(t, p.Close())
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))
	assert.Error(t, RegisterMetrics(reg))
}
