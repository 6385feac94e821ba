package subscription

import (
	"github.com/xraph/resthook/model"
)

// Scope selects whose subscriptions a trigger reaches. The zero value derives
// the owner from the triggering instance.
type Scope struct {
	owner string
	all   bool
}

// ForOwner limits delivery to subscriptions of owner.
func ForOwner(owner string) Scope { return Scope{owner: owner} }

// AllOwners reaches every subscriber of the event.
func AllOwners() Scope { return Scope{all: true} }

// IsAll reports whether the scope ignores owners.
func (s Scope) IsAll() bool { return s.all }

// Owner returns the explicit owner, if any.
func (s Scope) Owner() string { return s.owner }

// IsDerived reports whether the owner comes from the instance.
func (s Scope) IsDerived() bool { return !s.all && s.owner == "" }

// Resolve returns the owner filter for instance. An empty owner with a nil
// error means all owners.
func (s Scope) Resolve(instance any) (string, error) {
	switch {
	case s.all:
		return "", nil
	case s.owner != "":
		return s.owner, nil
	}
	if owner, ok := model.Owner(instance); ok && owner != "" {
		return owner, nil
	}
	return "", &OwnerResolutionError{Model: model.Name(instance)}
}

func (s Scope) String() string {
	switch {
	case s.all:
		return "all"
	case s.owner != "":
		return "owner:" + s.owner
	default:
		return "instance"
	}
}
