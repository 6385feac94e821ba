package redis

import "strconv"

// Key prefix for primary entity storage.
const prefixSubscription = "resthook:sub:"

// Key prefixes for sorted set indexes, scored by creation time.
const (
	zSubscriptionAll   = "resthook:z:sub:all"
	zSubscriptionEvent = "resthook:z:sub:event:" // + event
	zSubscriptionOwner = "resthook:z:sub:owner:" // + owner
	zSubscriptionPair  = "resthook:z:sub:eo:"    // + len(event) ":" event ":" owner
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}

// eventOwnerKey returns the sorted set of an owner's subscriptions to event.
// This is the index every owner-scoped fire reads. The event length prefix
// keeps the key unambiguous whatever either part contains.
func eventOwnerKey(event, owner string) string {
	return zSubscriptionPair + strconv.Itoa(len(event)) + ":" + event + ":" + owner
}

// indexKeys returns every sorted set a subscription is a member of.
func indexKeys(event, owner string) []string {
	return []string{
		zSubscriptionAll,
		zSubscriptionEvent + event,
		zSubscriptionOwner + owner,
		eventOwnerKey(event, owner),
	}
}

// listKey picks the narrowest index for a filter.
func listKey(event, owner string) string {
	switch {
	case event != "" && owner != "":
		return eventOwnerKey(event, owner)
	case event != "":
		return zSubscriptionEvent + event
	case owner != "":
		return zSubscriptionOwner + owner
	default:
		return zSubscriptionAll
	}
}
