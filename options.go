package resthook

import (
	"log/slog"
	"time"

	"github.com/xraph/resthook/catalog"
	"github.com/xraph/resthook/delivery"
	"github.com/xraph/resthook/observability"
	"github.com/xraph/resthook/payload"
	"github.com/xraph/resthook/store"
)

// Option configures a Hooks instance.
type Option func(*Hooks) error

// WithStore sets the persistence backend.
func WithStore(s store.Store) Option {
	return func(h *Hooks) error {
		h.store = s
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hooks) error {
		h.logger = logger
		return nil
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(h *Hooks) error {
		h.config = cfg
		return nil
	}
}

// WithEvents sets the event configuration.
func WithEvents(events catalog.Events) Option {
	return func(h *Hooks) error {
		h.config.Events = events
		return nil
	}
}

// WithSchemas sets the JSON Schemas raw event payloads are checked against.
func WithSchemas(schemas map[string]any) Option {
	return func(h *Hooks) error {
		h.config.Schemas = schemas
		return nil
	}
}

// WithThreading selects the worker pool (true) or inline delivery (false).
func WithThreading(enabled bool) Option {
	return func(h *Hooks) error {
		h.config.Threading = enabled
		return nil
	}
}

// WithWorkers sets the size of the delivery pool.
func WithWorkers(n int) Option {
	return func(h *Hooks) error {
		h.config.Workers = n
		return nil
	}
}

// WithRequestTimeout sets the HTTP timeout per delivery.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Hooks) error {
		h.config.RequestTimeout = d
		return nil
	}
}

// WithCleanupGone enables deleting subscriptions whose target answers 410.
func WithCleanupGone(enabled bool) Option {
	return func(h *Hooks) error {
		h.config.CleanupGone = enabled
		return nil
	}
}

// WithTargetRateLimit throttles deliveries to perSecond requests per target
// host, allowing bursts of burst requests.
func WithTargetRateLimit(perSecond float64, burst int) Option {
	return func(h *Hooks) error {
		h.config.TargetRateLimit = perSecond
		h.config.TargetBurst = burst
		return nil
	}
}

// WithShutdownTimeout sets how long Stop waits for queued deliveries.
func WithShutdownTimeout(d time.Duration) Option {
	return func(h *Hooks) error {
		h.config.ShutdownTimeout = d
		return nil
	}
}

// WithSerializer sets the process-wide payload serializer.
func WithSerializer(s payload.Serializer) Option {
	return func(h *Hooks) error {
		h.serializer = s
		return nil
	}
}

// WithDeliverer replaces the HTTP POST step.
func WithDeliverer(d Deliverer) Option {
	return func(h *Hooks) error {
		h.deliverer = d
		return nil
	}
}

// WithFinder replaces the lookup-and-deliver step of model and custom events.
func WithFinder(f Finder) Option {
	return func(h *Hooks) error {
		h.finder = f
		return nil
	}
}

// WithDispatcher supplies the delivery backend, such as a durable queue
// publisher. It takes precedence over Threading.
func WithDispatcher(d delivery.Dispatcher) Option {
	return func(h *Hooks) error {
		h.dispatcher = d
		return nil
	}
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Hooks) error {
		h.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(h *Hooks) error {
		h.tracer = t
		return nil
	}
}
