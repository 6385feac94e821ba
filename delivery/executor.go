package delivery

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/resthook/observability"
)

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	RequestTimeout time.Duration
	// OnGone removes the subscription of a request answered with 410. Nil
	// disables cleanup.
	OnGone  GoneHandler
	// Limiter throttles requests per target. Nil means unthrottled.
	Limiter Limiter
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Limiter blocks until a request to target may be sent.
type Limiter interface {
	Wait(ctx context.Context, target string) error
}

// Executor makes one attempt per request and applies the outcome policy.
// Backends share it so that every path records the same signals.
type Executor struct {
	sender *Sender
	config ExecutorConfig
	tracer *observability.Tracer
	logger *slog.Logger

	sent atomic.Int64
}

// NewExecutor creates an executor.
func NewExecutor(cfg ExecutorConfig, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = observability.NewTracer()
	}
	return &Executor{
		sender: NewSender(cfg.RequestTimeout),
		config: cfg,
		tracer: tracer,
		logger: logger,
	}
}

// Sent returns the number of completed attempts, whatever their outcome.
func (e *Executor) Sent() int64 { return e.sent.Load() }

// Execute attempts req once and returns the classified outcome.
func (e *Executor) Execute(ctx context.Context, req *Request) (Result, Outcome) {
	if req.Parent.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, req.Parent)
	}
	ctx, span := e.tracer.StartDeliverySpan(ctx, req.ID.String(), req.Event, req.SubscriptionID.String(), req.URL)

	var result Result
	if err := e.throttle(ctx, req); err != nil {
		result = Result{Error: "throttled: " + err.Error()}
	} else {
		result = e.sender.Send(ctx, req)
	}
	outcome := Classify(result)
	e.sent.Add(1)

	e.tracer.EndDeliverySpan(span, result.StatusCode, result.LatencyMs, result.Error)
	e.config.Metrics.RecordDelivery(outcome.String(), float64(result.LatencyMs)/1000.0)

	switch outcome {
	case OutcomeDelivered:
		e.logger.DebugContext(ctx, "resthook: delivered",
			"delivery_id", req.ID, "url", req.URL, "status", result.StatusCode, "latency_ms", result.LatencyMs)

	case OutcomeGone:
		e.logger.WarnContext(ctx, "resthook: target gone",
			"delivery_id", req.ID, "url", req.URL, "subscription_id", req.SubscriptionID)
		e.removeGone(ctx, req)

	default:
		e.logger.WarnContext(ctx, "resthook: delivery failed",
			"delivery_id", req.ID, "url", req.URL, "status", result.StatusCode, "error", result.Error)
	}

	return result, outcome
}

func (e *Executor) throttle(ctx context.Context, req *Request) error {
	if e.config.Limiter == nil {
		return nil
	}
	return e.config.Limiter.Wait(ctx, req.URL)
}

func (e *Executor) removeGone(ctx context.Context, req *Request) {
	if e.config.OnGone == nil || req.SubscriptionID.IsNil() {
		return
	}
	if err := e.config.OnGone(ctx, req.SubscriptionID); err != nil {
		e.logger.ErrorContext(ctx, "resthook: remove gone subscription failed",
			"subscription_id", req.SubscriptionID, "error", err)
		return
	}
	e.config.Metrics.RecordRemoved()
	e.logger.InfoContext(ctx, "resthook: subscription removed (410 Gone)",
		"subscription_id", req.SubscriptionID)
}
