package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/resthook"
	"github.com/xraph/resthook/id"
	"github.com/xraph/resthook/subscription"
)

// CreateSubscription persists a new subscription.
func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)

	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("resthook/mongo: create subscription: %w", err)
	}

	return nil
}

// GetSubscription returns a subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error) {
	var m subscriptionModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, resthook.ErrSubscriptionNotFound
		}

		return nil, fmt.Errorf("resthook/mongo: get subscription: %w", err)
	}

	return fromSubscriptionModel(&m)
}

// UpdateSubscription replaces the event and target of a subscription.
func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("resthook/mongo: update subscription: %w", err)
	}

	if res.MatchedCount() == 0 {
		return resthook.ErrSubscriptionNotFound
	}

	return nil
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(ctx context.Context, subID id.ID) error {
	res, err := s.mdb.NewDelete((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": subID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("resthook/mongo: delete subscription: %w", err)
	}

	if res.DeletedCount() == 0 {
		return resthook.ErrSubscriptionNotFound
	}

	return nil
}

// ListSubscriptions returns subscriptions matching f, oldest first.
func (s *Store) ListSubscriptions(ctx context.Context, f subscription.Filter) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	filter := bson.M{}
	if f.Event != "" {
		filter["event"] = f.Event
	}
	if f.Owner != "" {
		filter["owner"] = f.Owner
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if f.Limit > 0 {
		q = q.Limit(int64(f.Limit))
	}

	if f.Offset > 0 {
		q = q.Skip(int64(f.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("resthook/mongo: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, 0, len(models))

	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, sub)
	}

	return result, nil
}
