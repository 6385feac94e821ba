// Package delivery turns pending hook requests into HTTP calls.
//
// Every backend implements Dispatcher. Sync runs each request on the
// caller's goroutine; Pool queues requests for a fixed set of workers and
// never blocks the caller. Both make exactly one attempt per request and
// report outcomes through metrics, tracing and the optional GoneHandler,
// never through Enqueue's error.
package delivery

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/resthook/id"
)

// ErrDispatcherClosed is returned by Enqueue after the dispatcher stopped.
var ErrDispatcherClosed = errors.New("resthook: dispatcher is closed")

// Request is a pending delivery. It lives until its single attempt ends.
type Request struct {
	ID      id.ID
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string

	// SubscriptionID names the subscription to remove on 410 Gone.
	SubscriptionID id.ID
	// Event is carried for metrics and tracing.
	Event string
	// Parent is the span that produced the request. Backends that run the
	// attempt off the caller's goroutine parent the delivery span on it.
	Parent trace.SpanContext
}

// Dispatcher accepts pending deliveries.
type Dispatcher interface {
	Enqueue(ctx context.Context, req *Request) error
}

// GoneHandler is invoked when a target answers 410 Gone for a request
// that names a subscription.
type GoneHandler func(ctx context.Context, subscriptionID id.ID) error

// NewRequest returns a request with a fresh delivery ID.
func NewRequest(method, url string, body []byte, headers map[string]string) *Request {
	return &Request{
		ID:      id.NewDeliveryID(),
		Method:  method,
		URL:     url,
		Body:    body,
		Headers: headers,
	}
}

// Post enqueues a POST of body to url.
func Post(ctx context.Context, d Dispatcher, url string, body []byte, headers map[string]string) error {
	return d.Enqueue(ctx, NewRequest(http.MethodPost, url, body, headers))
}

// Get enqueues a GET of url.
func Get(ctx context.Context, d Dispatcher, url string, headers map[string]string) error {
	return d.Enqueue(ctx, NewRequest(http.MethodGet, url, nil, headers))
}

// Put enqueues a PUT of body to url.
func Put(ctx context.Context, d Dispatcher, url string, body []byte, headers map[string]string) error {
	return d.Enqueue(ctx, NewRequest(http.MethodPut, url, body, headers))
}

// Delete enqueues a DELETE of url.
func Delete(ctx context.Context, d Dispatcher, url string, headers map[string]string) error {
	return d.Enqueue(ctx, NewRequest(http.MethodDelete, url, nil, headers))
}
