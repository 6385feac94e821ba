package subscription

import (
	"context"

	"github.com/xraph/resthook/id"
)

// Store defines the persistence contract for subscriptions.
type Store interface {
	// CreateSubscription persists a new subscription.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// GetSubscription returns a subscription by ID.
	GetSubscription(ctx context.Context, subID id.ID) (*Subscription, error)

	// UpdateSubscription replaces the event and target of a subscription.
	UpdateSubscription(ctx context.Context, sub *Subscription) error

	// DeleteSubscription removes a subscription.
	DeleteSubscription(ctx context.Context, subID id.ID) error

	// ListSubscriptions returns subscriptions matching the filter, oldest
	// first. This is the hot path of every fired event.
	ListSubscriptions(ctx context.Context, f Filter) ([]*Subscription, error)
}
