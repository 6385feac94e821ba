// Package subscription is the registry of REST hook subscriptions. A
// subscription binds an owner, an event name and a target URL.
package subscription

import (
	"github.com/xraph/resthook/id"
	"github.com/xraph/resthook/internal/entity"
)

// Subscription is a stored binding of owner, event name and target URL.
type Subscription struct {
	entity.Entity

	// ID is the TypeID assigned on creation ("hook_...").
	ID id.ID `json:"id"`

	// Owner identifies the principal the subscription belongs to.
	Owner string `json:"owner"`

	// Event is the logical event name subscribed to.
	Event string `json:"event"`

	// Target is the absolute URL deliveries are POSTed to.
	Target string `json:"target"`
}

// Summary is the hook section of a delivery envelope.
type Summary struct {
	ID     string `json:"id"`
	Event  string `json:"event"`
	Target string `json:"target"`
}

// Summary returns the {id, event, target} view sent to receivers.
func (s *Subscription) Summary() Summary {
	return Summary{ID: s.ID.String(), Event: s.Event, Target: s.Target}
}

// Input is the creation and update payload for subscriptions.
type Input struct {
	Owner  string `json:"owner"`
	Event  string `json:"event"`
	Target string `json:"target"`
}

// Filter selects subscriptions. Empty fields match everything.
type Filter struct {
	Event  string
	Owner  string
	Offset int
	Limit  int
}
