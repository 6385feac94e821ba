package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/resthook"

// Tracer provides OpenTelemetry spans for firing and delivery.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// NewTracerWithProvider creates a tracer from tp instead of the global
// provider.
func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{
		tracer: tp.Tracer(tracerName),
	}
}

// StartFireSpan starts a span covering the fan-out of one event.
func (t *Tracer) StartFireSpan(ctx context.Context, event, scope string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "resthook.fire",
		trace.WithAttributes(
			attribute.String("resthook.event", event),
			attribute.String("resthook.scope", scope),
		),
	)
}

// StartDeliverySpan starts a new span for a delivery attempt.
func (t *Tracer) StartDeliverySpan(ctx context.Context, deliveryID, event, subscriptionID, target string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "resthook.delivery",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("resthook.delivery_id", deliveryID),
			attribute.String("resthook.event", event),
			attribute.String("resthook.subscription_id", subscriptionID),
			attribute.String("url.full", target),
		),
	)
}

// EndDeliverySpan ends a delivery span with result attributes.
func (t *Tracer) EndDeliverySpan(span trace.Span, statusCode, latencyMs int, err string) {
	span.SetAttributes(
		attribute.Int("http.response.status_code", statusCode),
		attribute.Int("resthook.latency_ms", latencyMs),
	)
	if err != "" {
		span.SetAttributes(attribute.String("resthook.error", err))
		span.SetStatus(codes.Error, err)
	}
	span.End()
}

// InjectHeaders returns the trace context of ctx as a string map, for
// carrying across a message broker.
func InjectHeaders(ctx context.Context) map[string]string {
	headers := make(map[string]string)
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))
	return headers
}

// ExtractHeaders restores a trace context written by InjectHeaders.
func ExtractHeaders(ctx context.Context, headers map[string]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))
}
