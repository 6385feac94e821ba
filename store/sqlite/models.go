package sqlite

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/resthook/id"
	"github.com/xraph/resthook/internal/entity"
	"github.com/xraph/resthook/subscription"
)

type subscriptionModel struct {
	grove.BaseModel `grove:"table:resthook_subscriptions"`

	ID        string    `grove:"id,pk"`
	Owner     string    `grove:"owner"`
	Event     string    `grove:"event"`
	Target    string    `grove:"target"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toSubscriptionModel(sub *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:        sub.ID.String(),
		Owner:     sub.Owner,
		Event:     sub.Event,
		Target:    sub.Target,
		CreatedAt: sub.CreatedAt,
		UpdatedAt: sub.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.ID, err)
	}
	return &subscription.Subscription{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:     subID,
		Owner:  m.Owner,
		Event:  m.Event,
		Target: m.Target,
	}, nil
}
