package resthook

import (
	"errors"

	"github.com/xraph/resthook/catalog"
	"github.com/xraph/resthook/delivery"
	"github.com/xraph/resthook/subscription"
)

// Sentinel errors returned by resthook operations.
var (
	// ErrNoStore is returned when Hooks is created without a store.
	ErrNoStore = errors.New("resthook: store is required")

	// ErrSubscriptionNotFound is returned when a subscription cannot be found.
	ErrSubscriptionNotFound = errors.New("resthook: subscription not found")

	// ErrPayloadValidationFailed is returned when a raw event payload fails
	// its JSON Schema.
	ErrPayloadValidationFailed = errors.New("resthook: payload validation failed")

	// ErrStoreClosed is returned when a store operation is attempted after the store is closed.
	ErrStoreClosed = errors.New("resthook: store is closed")

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = errors.New("resthook: migration failed")

	// ErrDispatcherClosed is returned when enqueueing on a stopped dispatcher.
	ErrDispatcherClosed = delivery.ErrDispatcherClosed

	// ErrResolution is matched by ResolutionError and OwnerResolutionError.
	ErrResolution = catalog.ErrResolution
)

// Typed errors, re-exported so callers need not import the subpackages.
type (
	// ConfigurationError reports an event configuration that cannot be indexed.
	ConfigurationError = catalog.ConfigurationError

	// ResolutionError reports an explicit firing without an event name or a
	// complete model and action.
	ResolutionError = catalog.ResolutionError

	// ValidationError reports invalid subscription input.
	ValidationError = subscription.ValidationError

	// OwnerResolutionError reports an owner-scoped trigger whose owner could
	// not be determined.
	OwnerResolutionError = subscription.OwnerResolutionError
)
