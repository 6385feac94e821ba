package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/xraph/resthook"
	"github.com/xraph/resthook/api"
	"github.com/xraph/resthook/catalog"
	"github.com/xraph/resthook/store/memory"
)

// testServer creates a Handler backed by a memory store and returns the test server.
func testServer(t *testing.T, opts ...resthook.Option) (*httptest.Server, *resthook.Hooks) {
	t.Helper()

	base := []resthook.Option{
		resthook.WithStore(memory.New()),
		resthook.WithThreading(false),
		resthook.WithEvents(catalog.Events{
			"book.added":    "bookstore.Book.created",
			"book.sold":     "",
			"book.recalled": "bookstore.Book.recalled+",
		}),
	}
	hooks, err := resthook.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("resthook.New: %v", err)
	}

	srv := httptest.NewServer(api.NewHandler(hooks, nil))
	t.Cleanup(srv.Close)
	return srv, hooks
}

func doJSON(t *testing.T, method, url, owner string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set(api.OwnerHeader, owner)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

// --- Subscriptions ---

func TestSubscriptions_CRUD(t *testing.T) {
	srv, _ := testServer(t)

	// Create
	resp := doJSON(t, "POST", srv.URL+"/subscriptions", "bob", map[string]any{
		"event":  "book.added",
		"target": "https://example.com/hooks/books",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var created map[string]any
	decodeBody(t, resp, &created)
	subID, _ := created["id"].(string)
	if subID == "" || created["event"] != "book.added" {
		t.Fatalf("unexpected create response: %v", created)
	}

	// Get
	resp = doJSON(t, "GET", srv.URL+"/subscriptions/"+subID, "bob", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// List
	resp = doJSON(t, "GET", srv.URL+"/subscriptions", "bob", nil)
	var list []map[string]any
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(list))
	}

	// Update target only
	resp = doJSON(t, "PUT", srv.URL+"/subscriptions/"+subID, "bob", map[string]any{
		"target": "https://example.com/hooks/v2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	var updated map[string]any
	decodeBody(t, resp, &updated)
	if updated["target"] != "https://example.com/hooks/v2" || updated["event"] != "book.added" {
		t.Fatalf("unexpected update response: %v", updated)
	}

	// Delete
	resp = doJSON(t, "DELETE", srv.URL+"/subscriptions/"+subID, "bob", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", srv.URL+"/subscriptions/"+subID, "bob", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubscriptions_Validation(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"unknown event", map[string]any{"event": "nope", "target": "https://example.com"}, "event"},
		{"relative target", map[string]any{"event": "book.added", "target": "/hooks"}, "target"},
		{"missing target", map[string]any{"event": "book.added"}, "target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, "POST", srv.URL+"/subscriptions", "bob", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			var body map[string]string
			decodeBody(t, resp, &body)
			if body["field"] != tt.field {
				t.Fatalf("expected field %q, got %v", tt.field, body)
			}
		})
	}
}

func TestSubscriptions_OwnerIsolation(t *testing.T) {
	srv, _ := testServer(t)

	resp := doJSON(t, "POST", srv.URL+"/subscriptions", "bob", map[string]any{
		"event":  "book.added",
		"target": "https://example.com/bob",
	})
	var created map[string]any
	decodeBody(t, resp, &created)
	subID := created["id"].(string)

	resp = doJSON(t, "GET", srv.URL+"/subscriptions/"+subID, "alice", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("alice get: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "DELETE", srv.URL+"/subscriptions/"+subID, "alice", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("alice delete: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", srv.URL+"/subscriptions", "alice", nil)
	var list []map[string]any
	decodeBody(t, resp, &list)
	if len(list) != 0 {
		t.Fatalf("alice should see no subscriptions, got %d", len(list))
	}
}

func TestSubscriptions_RequireOwner(t *testing.T) {
	srv, _ := testServer(t)

	resp := doJSON(t, "GET", srv.URL+"/subscriptions", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubscriptions_BadID(t *testing.T) {
	srv, _ := testServer(t)

	resp := doJSON(t, "GET", srv.URL+"/subscriptions/not-an-id", "bob", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Events ---

func TestEvents_List(t *testing.T) {
	srv, _ := testServer(t)

	resp := doJSON(t, "GET", srv.URL+"/events", "", nil)
	var events []map[string]string
	decodeBody(t, resp, &events)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %v", events)
	}
	if events[0]["name"] != "book.added" || events[0]["descriptor"] != "bookstore.Book.created" {
		t.Fatalf("unexpected first event: %v", events[0])
	}
	if events[1]["name"] != "book.recalled" || events[1]["descriptor"] != "bookstore.Book.recalled+" {
		t.Fatalf("unexpected second event: %v", events[1])
	}
	if events[2]["name"] != "book.sold" || events[2]["descriptor"] != "" {
		t.Fatalf("unexpected third event: %v", events[2])
	}
}

func TestEvents_Fire(t *testing.T) {
	var hits atomic.Int32
	var got map[string]any
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer receiver.Close()

	srv, _ := testServer(t)

	resp := doJSON(t, "POST", srv.URL+"/subscriptions", "bob", map[string]any{
		"event":  "book.sold",
		"target": receiver.URL,
	})
	resp.Body.Close()

	resp = doJSON(t, "POST", srv.URL+"/events/book.sold", "bob", map[string]any{
		"payload":       map[string]any{"title": "Dune"},
		"omit_envelope": true,
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("fire: expected 202, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if hits.Load() != 1 || got["title"] != "Dune" {
		t.Fatalf("expected one delivery of the payload, hits=%d body=%v", hits.Load(), got)
	}

	resp = doJSON(t, "POST", srv.URL+"/events/unknown.event", "bob", map[string]any{"payload": 1})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown event: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEvents_FireStaysWithinCallerOwner(t *testing.T) {
	var aliceHits atomic.Int32
	alice := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		aliceHits.Add(1)
	}))
	defer alice.Close()

	srv, _ := testServer(t)

	for _, event := range []string{"book.sold", "book.recalled"} {
		resp := doJSON(t, "POST", srv.URL+"/subscriptions", "alice", map[string]any{
			"event":  event,
			"target": alice.URL,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %s: expected 201, got %d", event, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := doJSON(t, "POST", srv.URL+"/events/book.sold", "mallory", map[string]any{
		"payload":    map[string]any{"forged": true},
		"all_owners": true,
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("fire: expected 202, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	if aliceHits.Load() != 0 {
		t.Fatalf("another owner's target must not receive the event, hits=%d", aliceHits.Load())
	}

	resp = doJSON(t, "POST", srv.URL+"/events/book.recalled", "mallory", map[string]any{
		"payload": map[string]any{"isbn": "123"},
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("fire all-owners event: expected 202, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	if aliceHits.Load() != 1 {
		t.Fatalf("all-owners event should reach every owner, hits=%d", aliceHits.Load())
	}
}

func TestEvents_FireSchemaViolation(t *testing.T) {
	srv, _ := testServer(t, resthook.WithSchemas(map[string]any{
		"book.sold": map[string]any{"type": "object", "required": []any{"title"}},
	}))

	resp := doJSON(t, "POST", srv.URL+"/events/book.sold", "bob", map[string]any{
		"payload": map[string]any{"price": 3},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Stats & health ---

func TestStatsAndHealth(t *testing.T) {
	srv, _ := testServer(t)

	resp := doJSON(t, "GET", srv.URL+"/stats", "", nil)
	var stats map[string]any
	decodeBody(t, resp, &stats)
	if stats["events"] != float64(2) || stats["pending_deliveries"] != float64(0) {
		t.Fatalf("unexpected stats: %v", stats)
	}

	resp = doJSON(t, "GET", srv.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealth_ClosedStore(t *testing.T) {
	srv, hooks := testServer(t)
	_ = hooks.Store().Close()

	resp := doJSON(t, "GET", srv.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
