// Package store defines the composite Store interface for resthook
// persistence. Backends live in the subpackages.
package store

import (
	"context"

	"github.com/xraph/resthook/subscription"
)

// Store is the aggregate persistence interface.
type Store interface {
	subscription.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
