package catalog

import (
	"errors"
	"fmt"
)

// ErrResolution is matched by every error that reports an event, or the
// owner it should be scoped to, could not be determined.
var ErrResolution = errors.New("resthook: cannot resolve event")

// ConfigurationError reports an event configuration that cannot be indexed.
// A catalog holding one refuses to resolve anything.
type ConfigurationError struct {
	Event      string
	Descriptor string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	if e.Descriptor == "" {
		return fmt.Sprintf("resthook: event %q: %s", e.Event, e.Reason)
	}
	return fmt.Sprintf("resthook: event %q (%s): %s", e.Event, e.Descriptor, e.Reason)
}

// ResolutionError is returned when an explicit firing names neither an event
// nor a complete model and action.
type ResolutionError struct {
	Model  string
	Action string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resthook: explicit event requires an event name or model and action (model=%q action=%q)", e.Model, e.Action)
}

// Unwrap lets errors.Is(err, ErrResolution) match.
func (e *ResolutionError) Unwrap() error { return ErrResolution }
