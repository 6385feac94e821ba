package subscription

import (
	"github.com/xraph/resthook/catalog"
)

// ValidationError indicates invalid subscription input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "subscription validation: " + e.Field + ": " + e.Message
}

// OwnerResolutionError is returned when an owner-scoped event is fired for an
// instance that has no owner and is not itself a principal.
type OwnerResolutionError struct {
	Model string
}

func (e *OwnerResolutionError) Error() string {
	return "resthook: cannot determine owner of " + e.Model + " instance; pass an owner or fire to all owners"
}

// Unwrap lets errors.Is(err, catalog.ErrResolution) match.
func (e *OwnerResolutionError) Unwrap() error { return catalog.ErrResolution }
