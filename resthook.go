package resthook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/xraph/resthook/catalog"
	"github.com/xraph/resthook/delivery"
	"github.com/xraph/resthook/id"
	"github.com/xraph/resthook/model"
	"github.com/xraph/resthook/notify"
	"github.com/xraph/resthook/observability"
	"github.com/xraph/resthook/payload"
	"github.com/xraph/resthook/store"
	"github.com/xraph/resthook/subscription"
)

// Standard actions fired by the model lifecycle entry points.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Deliverer replaces the HTTP POST of a payload to a subscription target.
type Deliverer interface {
	Deliver(ctx context.Context, target string, body any, instance any, sub *subscription.Subscription) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, target string, body any, instance any, sub *subscription.Subscription) error

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, target string, body any, instance any, sub *subscription.Subscription) error {
	return f(ctx, target, body, instance, sub)
}

// Finder replaces the lookup and fan-out of a resolved event.
type Finder interface {
	FindAndFire(ctx context.Context, event string, instance any, scope subscription.Scope) error
}

// FinderFunc adapts a function to Finder.
type FinderFunc func(ctx context.Context, event string, instance any, scope subscription.Scope) error

// FindAndFire calls f.
func (f FinderFunc) FindAndFire(ctx context.Context, event string, instance any, scope subscription.Scope) error {
	return f(ctx, event, instance, scope)
}

// PayloadFunc computes a raw event payload per subscription.
type PayloadFunc func(sub *subscription.Subscription, instance any) any

// RawEvent is an application-initiated event delivered without the payload
// builder.
type RawEvent struct {
	// Event names the event to fire. Without it, Model and Action must both
	// be set and are resolved like a model trigger.
	Event string

	// Payload is delivered as-is, or a PayloadFunc evaluated per subscription.
	Payload any

	// Scope selects whose subscriptions receive the event. The zero value
	// derives the owner from Instance.
	Scope subscription.Scope

	// OmitEnvelope sends Payload without the {hook, data} wrapper.
	OmitEnvelope bool

	// Instance is the optional triggering object. It is passed to observers
	// and PayloadFuncs. When Event is empty its model stands in for a
	// missing Model; otherwise it does not affect resolution.
	Instance any

	// Model and Action, when set, must agree with the event's descriptor.
	Model  string
	Action string

	// TrustEventName fires Event even if it is not configured.
	TrustEventName bool
}

// Hooks is the event pipeline. It resolves triggers to configured event
// names, finds matching subscriptions and hands payloads to the dispatcher.
// Entry points never report delivery failures; they only return errors for
// misuse, such as an owner that cannot be determined.
type Hooks struct {
	config     Config
	store      store.Store
	catalog    *catalog.Catalog
	subs       *subscription.Service
	builder    *payload.Builder
	serializer payload.Serializer
	deliverer  Deliverer
	finder     Finder
	dispatcher delivery.Dispatcher
	pool       *delivery.Pool
	bus        *notify.Bus
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	logger     *slog.Logger
}

// New creates a Hooks with the given options. It fails with a
// ConfigurationError if the event configuration cannot be indexed.
func New(opts ...Option) (*Hooks, error) {
	h := &Hooks{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	if h.store == nil {
		return nil, ErrNoStore
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.tracer == nil {
		h.tracer = observability.NewTracer()
	}

	h.catalog = catalog.New(h.config.Events,
		catalog.WithSchemas(h.config.Schemas),
		catalog.WithLogger(h.logger),
	)
	if err := h.catalog.Build(); err != nil {
		return nil, err
	}

	h.wireServices()
	return h, nil
}

// wireServices initializes the internal services after options have been applied.
func (h *Hooks) wireServices() {
	h.subs = subscription.NewService(h.store, h.catalog, h.logger)
	h.builder = payload.NewBuilder(h.serializer)
	h.bus = notify.NewBus(h.logger)

	if h.dispatcher != nil {
		return
	}

	exec := delivery.ExecutorConfig{
		RequestTimeout: h.config.RequestTimeout,
		Limiter:        h.config.limiter(),
		Metrics:        h.metrics,
		Tracer:         h.tracer,
	}
	if h.config.CleanupGone {
		exec.OnGone = h.subs.Delete
	}

	if h.config.Threading {
		h.pool = delivery.NewPool(delivery.PoolConfig{
			ExecutorConfig: exec,
			Workers:        h.config.Workers,
		}, h.logger)
		h.dispatcher = h.pool
		return
	}
	h.dispatcher = delivery.NewSync(exec, h.logger)
}

// Start launches the delivery workers, if any.
func (h *Hooks) Start(ctx context.Context) {
	if h.pool != nil {
		h.pool.Start(ctx)
	}
}

// Stop waits up to the shutdown timeout for queued deliveries, then stops
// the workers.
func (h *Hooks) Stop(ctx context.Context) error {
	if h.pool == nil {
		return nil
	}
	if h.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.ShutdownTimeout)
		defer cancel()
	}
	return h.pool.Stop(ctx)
}

// Reload replaces the event configuration. On a ConfigurationError the
// previous configuration stays in effect.
func (h *Hooks) Reload(events catalog.Events) error {
	return h.catalog.Reload(events)
}

// Observe registers fn to run after every hand-off to the dispatcher and
// returns a function that unregisters it.
func (h *Hooks) Observe(fn notify.Observer) (cancel func()) {
	return h.bus.Subscribe(fn)
}

// OnModelSaved fires the event configured for the instance's model and
// "created" or "updated".
func (h *Hooks) OnModelSaved(ctx context.Context, instance any, created bool) error {
	action := ActionUpdated
	if created {
		action = ActionCreated
	}
	return h.OnCustomEvent(ctx, action, instance, subscription.Scope{})
}

// OnModelDeleted fires the event configured for the instance's model and
// "deleted".
func (h *Hooks) OnModelDeleted(ctx context.Context, instance any) error {
	return h.OnCustomEvent(ctx, ActionDeleted, instance, subscription.Scope{})
}

// OnCustomEvent fires the event configured for the instance's model and an
// arbitrary action. Unconfigured combinations are ignored.
func (h *Hooks) OnCustomEvent(ctx context.Context, action string, instance any, scope subscription.Scope) error {
	name := model.Name(instance)
	res, ok, err := h.catalog.Resolve(name, action)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if res.AllOwners {
		scope = subscription.AllOwners()
	}
	return h.findAndFire(ctx, res.Event, instance, scope)
}

// OnRawEvent fires an explicitly named event with a caller-built payload.
func (h *Hooks) OnRawEvent(ctx context.Context, ev RawEvent) error {
	q := catalog.Query{
		Event:  ev.Event,
		Model:  ev.Model,
		Action: ev.Action,
		Trust:  ev.TrustEventName,
	}
	if q.Event == "" && q.Model == "" && ev.Instance != nil {
		q.Model = model.Name(ev.Instance)
	}

	res, ok, err := h.catalog.ResolveEvent(q)
	if err != nil {
		return err
	}
	if !ok {
		h.logger.DebugContext(ctx, "resthook: raw event not configured", "event", ev.Event, "model", q.Model)
		return nil
	}

	fn, dynamic := ev.Payload.(PayloadFunc)
	if !dynamic {
		if err := h.catalog.ValidatePayload(res.Event, ev.Payload); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrPayloadValidationFailed, res.Event, err)
		}
	}

	scope := ev.Scope
	if res.AllOwners {
		scope = subscription.AllOwners()
	}

	ctx, span := h.tracer.StartFireSpan(ctx, res.Event, scope.String())
	defer span.End()

	subs, err := h.subs.FindMatching(ctx, res.Event, ev.Instance, scope)
	if err != nil {
		return err
	}
	h.metrics.RecordFired(res.Event)

	for _, sub := range subs {
		h.isolate(ctx, res.Event, sub, func() error {
			body := ev.Payload
			if dynamic {
				body = fn(sub, ev.Instance)
				if err := h.catalog.ValidatePayload(res.Event, body); err != nil {
					h.metrics.RecordPipelineError("validate")
					return fmt.Errorf("%w: %s: %v", ErrPayloadValidationFailed, res.Event, err)
				}
			}
			if !ev.OmitEnvelope {
				body = payload.Wrap(sub, body)
			}
			return h.deliver(ctx, res.Event, sub, ev.Instance, body)
		})
	}
	return nil
}

// FindAndFire delivers event to every subscription scope selects, building
// each payload with the payload builder. It is the default Finder.
func (h *Hooks) FindAndFire(ctx context.Context, event string, instance any, scope subscription.Scope) error {
	ctx, span := h.tracer.StartFireSpan(ctx, event, scope.String())
	defer span.End()

	subs, err := h.subs.FindMatching(ctx, event, instance, scope)
	if err != nil {
		return err
	}
	h.metrics.RecordFired(event)

	for _, sub := range subs {
		h.isolate(ctx, event, sub, func() error {
			body, err := h.builder.Build(sub, instance)
			if err != nil {
				h.metrics.RecordPipelineError("build")
				return fmt.Errorf("build payload: %w", err)
			}
			return h.deliver(ctx, event, sub, instance, body)
		})
	}

	h.logger.DebugContext(ctx, "resthook: event fired",
		"event", event,
		"scope", scope.String(),
		"subscriptions", len(subs),
	)
	return nil
}

func (h *Hooks) findAndFire(ctx context.Context, event string, instance any, scope subscription.Scope) error {
	if h.finder != nil {
		return h.finder.FindAndFire(ctx, event, instance, scope)
	}
	return h.FindAndFire(ctx, event, instance, scope)
}

// deliver hands body to the deliverer or dispatcher, then notifies observers.
func (h *Hooks) deliver(ctx context.Context, event string, sub *subscription.Subscription, instance, body any) error {
	if h.deliverer != nil {
		if err := h.deliverer.Deliver(ctx, sub.Target, body, instance, sub); err != nil {
			h.metrics.RecordPipelineError("deliver")
			return fmt.Errorf("custom deliverer: %w", err)
		}
	} else {
		raw, err := json.Marshal(body)
		if err != nil {
			h.metrics.RecordPipelineError("build")
			return fmt.Errorf("encode payload: %w", err)
		}
		req := delivery.NewRequest(http.MethodPost, sub.Target, raw, map[string]string{
			"Content-Type": "application/json",
		})
		req.SubscriptionID = sub.ID
		req.Event = event
		if err := h.dispatcher.Enqueue(ctx, req); err != nil {
			h.metrics.RecordPipelineError("deliver")
			return fmt.Errorf("enqueue: %w", err)
		}
	}

	if errs := h.bus.Emit(ctx, notify.Attempt{
		Event:        event,
		Payload:      body,
		Instance:     instance,
		Subscription: sub,
	}); len(errs) > 0 {
		h.metrics.RecordPipelineError("observer")
	}
	return nil
}

// isolate runs fn for one subscription, logging and absorbing its error or
// panic so the remaining subscriptions are still served.
func (h *Hooks) isolate(ctx context.Context, event string, sub *subscription.Subscription, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			h.metrics.RecordPipelineError("panic")
			h.logger.ErrorContext(ctx, "resthook: delivery panicked",
				"event", event, "subscription_id", sub.ID, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		h.logger.WarnContext(ctx, "resthook: delivery skipped",
			"event", event, "subscription_id", sub.ID, "target", sub.Target, "error", err)
	}
}

// Subscriptions returns the subscription service.
func (h *Hooks) Subscriptions() *subscription.Service {
	return h.subs
}

// Catalog returns the event configuration.
func (h *Hooks) Catalog() *catalog.Catalog {
	return h.catalog
}

// Store returns the underlying store.
func (h *Hooks) Store() store.Store {
	return h.store
}

// Dispatcher returns the delivery backend in use.
func (h *Hooks) Dispatcher() delivery.Dispatcher {
	return h.dispatcher
}

// Drain waits until the worker pool has no queued or in-flight deliveries.
// It returns at once for other backends.
func (h *Hooks) Drain(ctx context.Context) error {
	if h.pool == nil {
		return nil
	}
	return h.pool.Drain(ctx)
}

// Sent returns the number of completed delivery attempts, when the backend
// counts them.
func (h *Hooks) Sent() int64 {
	if c, ok := h.dispatcher.(interface{ Sent() int64 }); ok {
		return c.Sent()
	}
	return 0
}

// Pending returns the number of deliveries waiting in the pool.
func (h *Hooks) Pending() int {
	if h.pool == nil {
		return 0
	}
	return h.pool.Pending()
}

// RemoveSubscription deletes a subscription. Durable consumers use it as
// their 410 cleanup.
func (h *Hooks) RemoveSubscription(ctx context.Context, subID id.ID) error {
	return h.subs.Delete(ctx, subID)
}
