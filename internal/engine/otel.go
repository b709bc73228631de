package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// engineTracer traces SQL-level spans, as the teacher's dolt store
// traces around its own driver calls. It uses the global provider,
// which is a no-op until a real provider is registered.
var engineTracer = otel.Tracer("github.com/cxz/splitgraph/internal/engine")

// engineMetrics mirrors the teacher's doltMetrics struct: instruments
// registered against the global meter at init time, so they start
// forwarding the moment a real MeterProvider is installed.
var engineMetrics struct {
	txRetryCount metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/cxz/splitgraph/internal/engine")
	engineMetrics.txRetryCount, _ = m.Int64Counter("sgr.engine.tx_retry_count",
		metric.WithDescription("transactions retried due to serialization conflicts"),
		metric.WithUnit("{retry}"),
	)
}

// spanSQL truncates a SQL string to keep spans readable.
func spanSQL(q string) string {
	if len(q) > 300 {
		return q[:300] + "…"
	}
	return q
}

// endSpan records an error, if any, and ends the span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// startQuerySpan opens a client-kind span around one engine.Engine
// call, named after op ("query_scalar", "query_all", ...).
func startQuerySpan(ctx context.Context, op, sqlText string) (context.Context, trace.Span) {
	return engineTracer.Start(ctx, "engine."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "sql"),
			attribute.String("db.operation", op),
			attribute.String("db.statement", spanSQL(sqlText)),
		),
	)
}
