package sync

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// syncTracer traces object-transfer spans, the same role the teacher's
// doltTracer plays around its own storage calls.
var syncTracer = otel.Tracer("github.com/cxz/splitgraph/internal/sync")

// syncMetrics counts objects moved across a clone/pull/push, registered
// against the global meter at init time.
var syncMetrics struct {
	objectsTransferred metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/cxz/splitgraph/internal/sync")
	syncMetrics.objectsTransferred, _ = m.Int64Counter("sgr.sync.objects_transferred",
		metric.WithDescription("object bodies transferred during clone/pull/push"),
		metric.WithUnit("{object}"),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
