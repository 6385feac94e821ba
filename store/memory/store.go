// Package memory provides an in-memory Store for tests and single-process
// deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/resthook"
	"github.com/xraph/resthook/id"
	hookstore "github.com/xraph/resthook/store"
	"github.com/xraph/resthook/subscription"
)

// compile-time interface check.
var _ hookstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store. It hands out copies,
// so callers may modify returned subscriptions freely.
type Store struct {
	mu sync.RWMutex

	subscriptions map[string]*subscription.Subscription // keyed by ID string

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		subscriptions: make(map[string]*subscription.Subscription),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports ErrStoreClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return resthook.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// subscription.Store
// ──────────────────────────────────────────────────

// CreateSubscription persists a new subscription.
func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return resthook.ErrStoreClosed
	}
	s.subscriptions[sub.ID.String()] = copySubscription(sub)
	return nil
}

// GetSubscription returns a subscription by ID.
func (s *Store) GetSubscription(_ context.Context, subID id.ID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return nil, resthook.ErrSubscriptionNotFound
	}
	return copySubscription(sub), nil
}

// UpdateSubscription replaces a stored subscription.
func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ID.String()]; !ok {
		return resthook.ErrSubscriptionNotFound
	}
	sub.UpdatedAt = time.Now().UTC()
	s.subscriptions[sub.ID.String()] = copySubscription(sub)
	return nil
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(_ context.Context, subID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[subID.String()]; !ok {
		return resthook.ErrSubscriptionNotFound
	}
	delete(s.subscriptions, subID.String())
	return nil
}

// ListSubscriptions returns matching subscriptions, oldest first.
func (s *Store) ListSubscriptions(_ context.Context, f subscription.Filter) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		if f.Event != "" && sub.Event != f.Event {
			continue
		}
		if f.Owner != "" && sub.Owner != f.Owner {
			continue
		}
		result = append(result, copySubscription(sub))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return applyPagination(result, f.Offset, f.Limit), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	cp := *sub
	return &cp
}

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
