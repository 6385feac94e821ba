package subscription

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/xraph/resthook/id"
	"github.com/xraph/resthook/internal/entity"
)

// MaxTargetLength bounds the stored target URL.
const MaxTargetLength = 255

// EventSet reports which event names may be subscribed to.
type EventSet interface {
	Has(name string) bool
}

// Service provides subscription management and matching.
type Service struct {
	store  Store
	events EventSet
	logger *slog.Logger
}

// NewService creates a subscription service. Event names are checked against
// events on create and update.
func NewService(store Store, events EventSet, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		events: events,
		logger: logger,
	}
}

// Create registers a new subscription.
func (svc *Service) Create(ctx context.Context, in Input) (*Subscription, error) {
	if in.Owner == "" {
		return nil, &ValidationError{Field: "owner", Message: "required"}
	}
	if err := svc.validate(in); err != nil {
		return nil, err
	}

	sub := &Subscription{
		Entity: entity.New(),
		ID:     id.NewSubscriptionID(),
		Owner:  in.Owner,
		Event:  in.Event,
		Target: in.Target,
	}
	if err := svc.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	svc.logger.DebugContext(ctx, "resthook: subscription created",
		"subscription_id", sub.ID.String(),
		"owner", sub.Owner,
		"event", sub.Event,
	)
	return sub, nil
}

// Get returns a subscription by ID.
func (svc *Service) Get(ctx context.Context, subID id.ID) (*Subscription, error) {
	return svc.store.GetSubscription(ctx, subID)
}

// Update changes the event and target of a subscription. The owner is
// immutable.
func (svc *Service) Update(ctx context.Context, subID id.ID, in Input) (*Subscription, error) {
	sub, err := svc.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}

	if in.Event == "" {
		in.Event = sub.Event
	}
	if in.Target == "" {
		in.Target = sub.Target
	}
	if err := svc.validate(in); err != nil {
		return nil, err
	}

	sub.Event = in.Event
	sub.Target = in.Target
	sub.Touch()

	if err := svc.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Delete removes a subscription.
func (svc *Service) Delete(ctx context.Context, subID id.ID) error {
	return svc.store.DeleteSubscription(ctx, subID)
}

// Find returns the subscriptions for event. An empty owner means all owners.
func (svc *Service) Find(ctx context.Context, event, owner string) ([]*Subscription, error) {
	return svc.store.ListSubscriptions(ctx, Filter{Event: event, Owner: owner})
}

// List returns subscriptions matching f.
func (svc *Service) List(ctx context.Context, f Filter) ([]*Subscription, error) {
	return svc.store.ListSubscriptions(ctx, f)
}

// FindMatching returns the subscriptions a trigger for event reaches.
// Configuration drift is tolerated: an event nobody subscribes to, or one no
// longer configured, simply matches nothing.
func (svc *Service) FindMatching(ctx context.Context, event string, instance any, scope Scope) ([]*Subscription, error) {
	owner, err := scope.Resolve(instance)
	if err != nil {
		return nil, err
	}
	return svc.Find(ctx, event, owner)
}

func (svc *Service) validate(in Input) error {
	if svc.events != nil && !svc.events.Has(in.Event) {
		return &ValidationError{Field: "event", Message: "unknown event " + `"` + in.Event + `"`}
	}
	return ValidateTarget(in.Target)
}

// ValidateTarget checks that target is an absolute http or https URL that
// fits in storage.
func ValidateTarget(target string) error {
	if target == "" {
		return &ValidationError{Field: "target", Message: "required"}
	}
	if len(target) > MaxTargetLength {
		return &ValidationError{Field: "target", Message: "longer than 255 characters"}
	}
	u, err := url.ParseRequestURI(target)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: "target", Message: "invalid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "target", Message: "scheme must be http or https"}
	}
	return nil
}
