package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/laocai-wudi/chunmpre.cn/pkg/database"

var slowQuery struct {
	mu        sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

// SetSlowQueryLogging logs queries slower than threshold at Warn. A zero
// threshold or nil logger disables it.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	slowQuery.mu.Lock()
	defer slowQuery.mu.Unlock()
	slowQuery.threshold = threshold
	slowQuery.logger = logger
}

func slowQueryConfig() (time.Duration, *slog.Logger) {
	slowQuery.mu.RLock()
	defer slowQuery.mu.RUnlock()
	return slowQuery.threshold, slowQuery.logger
}

// TraceQuery starts a client span for a database operation. Call the returned
// function with the operation's error when it completes:
//
//	ctx, end := database.TraceQuery(ctx, "DeleteProduct", query)
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		logIfSlow(ctx, operation, statement, time.Since(start), err)
	}
}

func logIfSlow(ctx context.Context, operation, statement string, elapsed time.Duration, err error) {
	threshold, logger := slowQueryConfig()
	if threshold <= 0 || logger == nil || elapsed < threshold {
		return
	}
	attrs := []any{
		slog.String("operation", operation),
		slog.String("statement", statement),
		slog.Duration("duration", elapsed),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.WarnContext(ctx, "slow query detected", attrs...)
}
