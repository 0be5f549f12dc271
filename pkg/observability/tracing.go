package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "eventhint"

// Span attribute keys.
const (
	AttrOwnerID    = "owner_id"
	AttrMessageID  = "message_id"
	AttrEventID    = "event_id"
	AttrStage      = "stage"
	AttrConfidence = "confidence"
	AttrErrorType  = "error_type"
	AttrRetryable  = "retryable"
)

// Span names.
const (
	SpanProcessMessage = "pipeline.process_message"
	SpanStage          = "pipeline.stage"
	SpanSyncEvent      = "calendarsync.sync_event"
)

// Tracer wraps the otel tracer used across the pipeline orchestrator and
// calendar sync engine.
type Tracer struct {
	tracer trace.Tracer
}

func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartMessageSpan starts a root span for processing one message through
// the pipeline orchestrator.
func (t *Tracer) StartMessageSpan(ctx context.Context, ownerID, messageID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanProcessMessage,
		trace.WithAttributes(
			attribute.String(AttrOwnerID, ownerID),
			attribute.String(AttrMessageID, messageID),
		),
	)
}

// StartStageSpan starts a span for one pipeline stage.
func (t *Tracer) StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("%s.%s", SpanStage, stage),
		trace.WithAttributes(attribute.String(AttrStage, stage)),
	)
}

// StartSyncSpan starts a span for one calendar sync attempt.
func (t *Tracer) StartSyncSpan(ctx context.Context, eventID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanSyncEvent,
		trace.WithAttributes(attribute.String(AttrEventID, eventID)),
	)
}

// SpanHelper provides convenience setters for the current span.
type SpanHelper struct {
	span trace.Span
}

func NewSpanHelper(span trace.Span) *SpanHelper {
	return &SpanHelper{span: span}
}

func (h *SpanHelper) SetConfidence(confidence float64) {
	h.span.SetAttributes(attribute.Float64(AttrConfidence, confidence))
}

func (h *SpanHelper) SetError(err error, errorType string, retryable bool) {
	h.span.SetStatus(codes.Error, err.Error())
	h.span.SetAttributes(
		attribute.String(AttrErrorType, errorType),
		attribute.Bool(AttrRetryable, retryable),
	)
	h.span.RecordError(err)
}

func (h *SpanHelper) SetSuccess() {
	h.span.SetStatus(codes.Ok, "")
}

func (h *SpanHelper) AddEvent(name string, attrs ...attribute.KeyValue) {
	h.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the active trace ID, if any, for correlating logs.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
