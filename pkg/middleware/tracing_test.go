package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return exporter
}

func tracedRouter(status int) *chi.Mux {
	r := chi.NewRouter()
	r.Use(Tracing("catalog"))
	r.Get("/api/v1/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
	return r
}

func TestTracing_NamesSpanAfterRoute(t *testing.T) {
	exporter := setupTestTracer(t)

	rec := httptest.NewRecorder()
	tracedRouter(http.StatusOK).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/products/{id}", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.NotEmpty(t, rec.Header().Get("traceparent"))

	attrs := map[string]any{}
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.AsInterface()
	}
	assert.Equal(t, int64(http.StatusOK), attrs["http.response.status_code"])
	assert.Equal(t, "/api/v1/products/{id}", attrs["http.route"])
}

func TestTracing_ServerErrorMarksSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	tracedRouter(http.StatusInternalServerError).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	exporter := setupTestTracer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	tracedRouter(http.StatusOK).ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent.SpanID().String())
}
