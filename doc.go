// Package resthook delivers model lifecycle and custom events to
// subscribers as REST hooks.
//
// Subscribers register a target URL for a named event. Application code
// reports that a model instance was saved or deleted, or fires a custom or
// raw event; resthook maps the trigger to a configured event name, finds
// the subscriptions of the instance's owner and POSTs a JSON payload to
// each target.
//
// Event names are configured as a map of name to descriptor:
//
//	hooks, err := resthook.New(
//	    resthook.WithStore(memory.New()),
//	    resthook.WithEvents(catalog.Events{
//	        "book.added":   "bookstore.Book.created",
//	        "book.changed": "bookstore.Book.updated",
//	        "book.read":    "bookstore.Book.read+",
//	        "book.sold":    "",
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	hooks.Start(ctx)
//	defer hooks.Stop(ctx)
//
//	hooks.OnModelSaved(ctx, book, true)
//
// A trailing "+" on a descriptor sends the event to every owner's
// subscriptions. An empty descriptor declares an event that only
// OnRawEvent fires.
//
// Deliveries run on a pool of three workers by default, or inline with
// WithThreading(false), or through any delivery.Dispatcher such as the NSQ
// publisher in delivery/nsqqueue. Each delivery is attempted exactly once.
package resthook
