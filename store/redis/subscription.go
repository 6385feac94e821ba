package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/resthook"
	"github.com/xraph/resthook/id"
	"github.com/xraph/resthook/internal/entity"
	"github.com/xraph/resthook/subscription"
)

// subscriptionModel is the JSON representation stored in Redis.
type subscriptionModel struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Event     string    `json:"event"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
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

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	if err := s.setEntity(ctx, entityKey(prefixSubscription, m.ID), m); err != nil {
		return fmt.Errorf("resthook/redis: create subscription: %w", err)
	}

	pipe := s.rdb.Pipeline()
	z := goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID}
	for _, key := range indexKeys(m.Event, m.Owner) {
		pipe.ZAdd(ctx, key, z)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("resthook/redis: create subscription indexes: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error) {
	var m subscriptionModel
	if err := s.getEntity(ctx, entityKey(prefixSubscription, subID.String()), &m); err != nil {
		if isNotFound(err) {
			return nil, resthook.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("resthook/redis: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	key := entityKey(prefixSubscription, sub.ID.String())

	var existing subscriptionModel
	if err := s.getEntity(ctx, key, &existing); err != nil {
		if isNotFound(err) {
			return resthook.ErrSubscriptionNotFound
		}
		return fmt.Errorf("resthook/redis: update subscription get: %w", err)
	}

	m := toSubscriptionModel(sub)
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("resthook/redis: update subscription: %w", err)
	}

	if existing.Event == m.Event && existing.Owner == m.Owner {
		return nil
	}

	// Move the entry to the indexes of its new event and owner.
	pipe := s.rdb.Pipeline()
	for _, k := range indexKeys(existing.Event, existing.Owner) {
		pipe.ZRem(ctx, k, m.ID)
	}
	z := goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID}
	for _, k := range indexKeys(m.Event, m.Owner) {
		pipe.ZAdd(ctx, k, z)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("resthook/redis: update subscription indexes: %w", err)
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.ID) error {
	key := entityKey(prefixSubscription, subID.String())

	var m subscriptionModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isNotFound(err) {
			return resthook.ErrSubscriptionNotFound
		}
		return fmt.Errorf("resthook/redis: delete subscription get: %w", err)
	}

	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("resthook/redis: delete subscription: %w", err)
	}

	pipe := s.rdb.Pipeline()
	for _, k := range indexKeys(m.Event, m.Owner) {
		pipe.ZRem(ctx, k, m.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("resthook/redis: delete subscription indexes: %w", err)
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, f subscription.Filter) ([]*subscription.Subscription, error) {
	ids, err := s.rdb.ZRange(ctx, listKey(f.Event, f.Owner), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("resthook/redis: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, 0, len(ids))
	for _, entryID := range ids {
		var m subscriptionModel
		if err := s.getEntity(ctx, entityKey(prefixSubscription, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		sub, err := fromSubscriptionModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}

	return applyPagination(result, f.Offset, f.Limit), nil
}
