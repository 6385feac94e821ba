package resthook_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xraph/resthook"
	"github.com/xraph/resthook/catalog"
	"github.com/xraph/resthook/id"
	"github.com/xraph/resthook/notify"
	"github.com/xraph/resthook/payload"
	"github.com/xraph/resthook/store/memory"
	"github.com/xraph/resthook/subscription"
)

// ──────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────

type comment struct {
	ID      int       `json:"id"`
	User    string    `json:"-"`
	Body    string    `json:"body"`
	Created time.Time `json:"created"`
}

func (*comment) HookModel() string   { return "blog.Comment" }
func (c *comment) HookOwner() string { return c.User }

// orphan has no owner.
type orphan struct{ ID int }

func (orphan) HookModel() string { return "blog.Orphan" }

type capture struct {
	mu     sync.Mutex
	bodies map[string][]map[string]any
	status int
}

func (c *capture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	c.mu.Lock()
	c.bodies[r.URL.Path] = append(c.bodies[r.URL.Path], body)
	c.mu.Unlock()
	if c.status != 0 {
		w.WriteHeader(c.status)
	}
}

func (c *capture) get(path string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bodies[path]
}

func receiver(t *testing.T, status int) (*capture, string) {
	t.Helper()
	c := &capture{bodies: make(map[string][]map[string]any), status: status}
	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)
	return c, srv.URL
}

var testEvents = catalog.Events{
	"comment.added":     "blog.Comment.created",
	"comment.changed":   "blog.Comment.updated",
	"comment.moderated": "blog.Comment.moderated+",
	"orphan.added":      "blog.Orphan.created",
	"book.sold":         "",
}

func newHooks(t *testing.T, opts ...resthook.Option) *resthook.Hooks {
	t.Helper()
	base := []resthook.Option{
		resthook.WithStore(memory.New()),
		resthook.WithEvents(testEvents),
		resthook.WithThreading(false),
	}
	h, err := resthook.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func subscribe(t *testing.T, h *resthook.Hooks, owner, event, target string) *subscription.Subscription {
	t.Helper()
	sub, err := h.Subscriptions().Create(context.Background(), subscription.Input{
		Owner:  owner,
		Event:  event,
		Target: target,
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return sub
}

// ──────────────────────────────────────────────────
// Construction
// ──────────────────────────────────────────────────

func TestNewRequiresStore(t *testing.T) {
	_, err := resthook.New(resthook.WithEvents(testEvents))
	if !errors.Is(err, resthook.ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestNewRejectsDuplicateDescriptors(t *testing.T) {
	_, err := resthook.New(
		resthook.WithStore(memory.New()),
		resthook.WithEvents(catalog.Events{
			"a": "blog.Comment.created",
			"b": "blog.Comment.created",
		}),
	)
	var cfgErr *resthook.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// Model events
// ──────────────────────────────────────────────────

func TestModelSavedDeliversToOwnerOnly(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	bob := subscribe(t, h, "bob", "comment.added", url+"/bob")
	subscribe(t, h, "alice", "comment.added", url+"/alice")

	c := &comment{
		ID:      7,
		User:    "bob",
		Body:    "hello",
		Created: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := h.OnModelSaved(context.Background(), c, true); err != nil {
		t.Fatal(err)
	}

	got := rc.get("/bob")
	if len(got) != 1 {
		t.Fatalf("expected 1 delivery to bob, got %d", len(got))
	}
	if len(rc.get("/alice")) != 0 {
		t.Fatal("alice should not receive bob's event")
	}

	hook := got[0]["hook"].(map[string]any)
	if hook["id"] != bob.ID.String() || hook["event"] != "comment.added" || hook["target"] != url+"/bob" {
		t.Fatalf("unexpected hook summary: %v", hook)
	}
	data := got[0]["data"].(map[string]any)
	if data["model"] != "blog.Comment" {
		t.Fatalf("model = %v", data["model"])
	}
	if data["pk"] != float64(7) {
		t.Fatalf("pk = %v", data["pk"])
	}
	fields := data["fields"].(map[string]any)
	if fields["body"] != "hello" || fields["created"] != "2024-03-01T10:00:00Z" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if _, leaked := fields["User"]; leaked {
		t.Fatal("json:\"-\" field leaked into payload")
	}
	if h.Sent() != 1 {
		t.Fatalf("sent = %d, want 1", h.Sent())
	}
}

func TestModelUpdatedAndDeleted(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	subscribe(t, h, "bob", "comment.changed", url+"/changed")

	c := &comment{ID: 1, User: "bob"}
	if err := h.OnModelSaved(context.Background(), c, false); err != nil {
		t.Fatal(err)
	}
	// "blog.Comment.deleted" is not configured.
	if err := h.OnModelDeleted(context.Background(), c); err != nil {
		t.Fatal(err)
	}

	if n := len(rc.get("/changed")); n != 1 {
		t.Fatalf("expected 1 update delivery, got %d", n)
	}
	if h.Sent() != 1 {
		t.Fatalf("sent = %d, want 1", h.Sent())
	}
}

func TestUnconfiguredTriggerIsNoOp(t *testing.T) {
	h := newHooks(t, resthook.WithFinder(resthook.FinderFunc(
		func(context.Context, string, any, subscription.Scope) error {
			t.Fatal("finder must not run for an unconfigured trigger")
			return nil
		})))

	if err := h.OnCustomEvent(context.Background(), "archived", &comment{User: "bob"}, subscription.Scope{}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestIgnoreOwnerReachesEveryOwner(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	subscribe(t, h, "bob", "comment.moderated", url+"/bob")
	subscribe(t, h, "alice", "comment.moderated", url+"/alice")

	c := &comment{ID: 3, User: "bob"}
	if err := h.OnCustomEvent(context.Background(), "moderated", c, subscription.ForOwner("bob")); err != nil {
		t.Fatal(err)
	}
	if len(rc.get("/bob")) != 1 || len(rc.get("/alice")) != 1 {
		t.Fatalf("expected both owners to receive the event, got bob=%d alice=%d",
			len(rc.get("/bob")), len(rc.get("/alice")))
	}
}

func TestExplicitOwnerScope(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	subscribe(t, h, "bob", "comment.added", url+"/bob")
	subscribe(t, h, "carol", "comment.added", url+"/carol")

	c := &comment{ID: 4, User: "bob"}
	if err := h.OnCustomEvent(context.Background(), "created", c, subscription.ForOwner("carol")); err != nil {
		t.Fatal(err)
	}
	if len(rc.get("/carol")) != 1 || len(rc.get("/bob")) != 0 {
		t.Fatal("explicit owner should replace the derived one")
	}
}

func TestMissingOwnerIsAnError(t *testing.T) {
	h := newHooks(t)

	err := h.OnModelSaved(context.Background(), orphan{ID: 1}, true)
	var ownerErr *resthook.OwnerResolutionError
	if !errors.As(err, &ownerErr) {
		t.Fatalf("expected OwnerResolutionError, got %v", err)
	}
	if !errors.Is(err, resthook.ErrResolution) {
		t.Fatal("OwnerResolutionError should match ErrResolution")
	}
}

// ──────────────────────────────────────────────────
// Raw events
// ──────────────────────────────────────────────────

func TestRawEventEnvelope(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	sub := subscribe(t, h, "bob", "book.sold", url+"/wrapped")

	err := h.OnRawEvent(context.Background(), resthook.RawEvent{
		Event:   "book.sold",
		Payload: map[string]any{"title": "Dune"},
		Scope:   subscription.ForOwner("bob"),
	})
	if err != nil {
		t.Fatal(err)
	}

	got := rc.get("/wrapped")
	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0]["hook"].(map[string]any)["id"] != sub.ID.String() {
		t.Fatalf("unexpected hook: %v", got[0]["hook"])
	}
	if got[0]["data"].(map[string]any)["title"] != "Dune" {
		t.Fatalf("unexpected data: %v", got[0]["data"])
	}
}

func TestRawEventOmitEnvelope(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	subscribe(t, h, "bob", "book.sold", url+"/raw")

	err := h.OnRawEvent(context.Background(), resthook.RawEvent{
		Event:        "book.sold",
		Payload:      map[string]any{"title": "Dune"},
		Scope:        subscription.ForOwner("bob"),
		OmitEnvelope: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	got := rc.get("/raw")
	if len(got) != 1 || got[0]["title"] != "Dune" || got[0]["hook"] != nil {
		t.Fatalf("expected the bare payload, got %v", got)
	}
}

func TestRawEventPayloadFunc(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	subscribe(t, h, "bob", "book.sold", url+"/a")
	subscribe(t, h, "bob", "book.sold", url+"/b")

	err := h.OnRawEvent(context.Background(), resthook.RawEvent{
		Event: "book.sold",
		Payload: resthook.PayloadFunc(func(sub *subscription.Subscription, _ any) any {
			return map[string]any{"target": sub.Target}
		}),
		Scope:        subscription.ForOwner("bob"),
		OmitEnvelope: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{"/a", "/b"} {
		got := rc.get(path)
		if len(got) != 1 || got[0]["target"] != url+path {
			t.Fatalf("%s: unexpected payload %v", path, got)
		}
	}
}

func TestRawEventPayloadFuncIsValidated(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t, resthook.WithSchemas(map[string]any{
		"book.sold": map[string]any{
			"type":     "object",
			"required": []any{"title"},
		},
	}))
	subscribe(t, h, "bob", "book.sold", url+"/bad")
	subscribe(t, h, "bob", "book.sold", url+"/good")

	err := h.OnRawEvent(context.Background(), resthook.RawEvent{
		Event: "book.sold",
		Payload: resthook.PayloadFunc(func(sub *subscription.Subscription, _ any) any {
			if strings.HasSuffix(sub.Target, "/bad") {
				return map[string]any{"price": 10}
			}
			return map[string]any{"title": "Dune"}
		}),
		Scope:        subscription.ForOwner("bob"),
		OmitEnvelope: true,
	})
	if err != nil {
		t.Fatalf("per-subscription failures must not surface, got %v", err)
	}
	if len(rc.get("/bad")) != 0 {
		t.Fatal("invalid computed payload was delivered")
	}
	if got := rc.get("/good"); len(got) != 1 || got[0]["title"] != "Dune" {
		t.Fatalf("valid computed payload not delivered: %v", got)
	}
}

func TestRawEventRequiresNameOrModelAction(t *testing.T) {
	h := newHooks(t)

	err := h.OnRawEvent(context.Background(), resthook.RawEvent{Model: "blog.Comment"})
	var resErr *resthook.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
}

func TestRawEventByModelAndAction(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	subscribe(t, h, "bob", "comment.added", url+"/hook")

	err := h.OnRawEvent(context.Background(), resthook.RawEvent{
		Model:   "blog.Comment",
		Action:  "created",
		Payload: map[string]any{"n": 1},
		Scope:   subscription.ForOwner("bob"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rc.get("/hook")) != 1 {
		t.Fatal("expected the model and action to resolve comment.added")
	}
}

func TestRawEventModelMismatchIsNoOp(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	subscribe(t, h, "bob", "comment.added", url+"/hook")

	err := h.OnRawEvent(context.Background(), resthook.RawEvent{
		Event:   "comment.added",
		Model:   "blog.Orphan",
		Payload: map[string]any{},
		Scope:   subscription.ForOwner("bob"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rc.get("/hook")) != 0 {
		t.Fatal("another model must not fire comment.added")
	}
}

func TestRawEventInstanceDoesNotFilterNamedEvent(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	subscribe(t, h, "bob", "comment.added", url+"/hook")

	var observed any
	h.Observe(func(_ context.Context, a notify.Attempt) error {
		observed = a.Instance
		return nil
	})

	err := h.OnRawEvent(context.Background(), resthook.RawEvent{
		Event:    "comment.added",
		Instance: orphan{ID: 1},
		Payload:  map[string]any{},
		Scope:    subscription.ForOwner("bob"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rc.get("/hook")) != 1 {
		t.Fatal("an attached instance must not stop a named event")
	}
	if o, ok := observed.(orphan); !ok || o.ID != 1 {
		t.Fatalf("observer got %v", observed)
	}
}

func TestRawEventTrustEventName(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	st := memory.New()
	h := newHooks(t, resthook.WithStore(st))

	sub := &subscription.Subscription{
		ID:     id.NewSubscriptionID(),
		Owner:  "bob",
		Event:  "legacy.event",
		Target: url + "/legacy",
	}
	if err := st.CreateSubscription(context.Background(), sub); err != nil {
		t.Fatal(err)
	}

	ev := resthook.RawEvent{
		Event:   "legacy.event",
		Payload: map[string]any{},
		Scope:   subscription.ForOwner("bob"),
	}
	if err := h.OnRawEvent(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(rc.get("/legacy")) != 0 {
		t.Fatal("unconfigured event fired without trust")
	}

	ev.TrustEventName = true
	if err := h.OnRawEvent(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(rc.get("/legacy")) != 1 {
		t.Fatal("trusted event was not delivered")
	}
}

func TestRawEventSchemaValidation(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t, resthook.WithSchemas(map[string]any{
		"book.sold": map[string]any{
			"type":     "object",
			"required": []any{"title"},
		},
	}))
	subscribe(t, h, "bob", "book.sold", url+"/hook")

	err := h.OnRawEvent(context.Background(), resthook.RawEvent{
		Event:   "book.sold",
		Payload: map[string]any{"price": 10},
		Scope:   subscription.ForOwner("bob"),
	})
	if !errors.Is(err, resthook.ErrPayloadValidationFailed) {
		t.Fatalf("expected ErrPayloadValidationFailed, got %v", err)
	}
	if len(rc.get("/hook")) != 0 {
		t.Fatal("invalid payload was delivered")
	}
}

// ──────────────────────────────────────────────────
// Extension points and isolation
// ──────────────────────────────────────────────────

func TestCustomDeliverer(t *testing.T) {
	var (
		mu      sync.Mutex
		targets []string
	)
	h := newHooks(t, resthook.WithDeliverer(resthook.DelivererFunc(
		func(_ context.Context, target string, body any, _ any, sub *subscription.Subscription) error {
			mu.Lock()
			defer mu.Unlock()
			if _, ok := body.(payload.Envelope); !ok {
				t.Errorf("expected an envelope, got %T", body)
			}
			targets = append(targets, target)
			return nil
		})))
	subscribe(t, h, "bob", "comment.added", "http://example.invalid/one")

	if err := h.OnModelSaved(context.Background(), &comment{ID: 1, User: "bob"}, true); err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 || targets[0] != "http://example.invalid/one" {
		t.Fatalf("unexpected targets: %v", targets)
	}
	if h.Sent() != 0 {
		t.Fatal("custom deliverer should bypass HTTP")
	}
}

func TestCustomFinder(t *testing.T) {
	var got []string
	h := newHooks(t, resthook.WithFinder(resthook.FinderFunc(
		func(_ context.Context, event string, _ any, scope subscription.Scope) error {
			got = append(got, event+"/"+scope.String())
			return nil
		})))

	ctx := context.Background()
	_ = h.OnModelSaved(ctx, &comment{User: "bob"}, true)
	_ = h.OnCustomEvent(ctx, "moderated", &comment{User: "bob"}, subscription.Scope{})

	want := []string{
		"comment.added/" + subscription.Scope{}.String(),
		"comment.moderated/" + subscription.AllOwners().String(),
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

type picky struct {
	ID   int
	User string
}

func (*picky) HookModel() string   { return "blog.Comment" }
func (p *picky) HookOwner() string { return p.User }

func TestBadPayloadSkipsOnlyThatSubscription(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t, resthook.WithSerializer(payload.SerializerFunc(
		func(instance any, sub *subscription.Subscription) (any, error) {
			if strings.HasSuffix(sub.Target, "/bad") {
				return nil, errors.New("cannot render")
			}
			if strings.HasSuffix(sub.Target, "/panic") {
				panic("boom")
			}
			return map[string]any{"ok": true}, nil
		})))
	subscribe(t, h, "bob", "comment.added", url+"/bad")
	subscribe(t, h, "bob", "comment.added", url+"/panic")
	subscribe(t, h, "bob", "comment.added", url+"/good")

	if err := h.OnModelSaved(context.Background(), &picky{ID: 1, User: "bob"}, true); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(rc.get("/good")) != 1 {
		t.Fatal("healthy subscription was not served")
	}
	if len(rc.get("/bad"))+len(rc.get("/panic")) != 0 {
		t.Fatal("failed payloads must not be delivered")
	}
}

func TestObserversAreIsolated(t *testing.T) {
	_, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	subscribe(t, h, "bob", "comment.added", url+"/one")
	subscribe(t, h, "bob", "comment.added", url+"/two")

	var seen []string
	h.Observe(func(context.Context, notify.Attempt) error { panic("observer bug") })
	cancel := h.Observe(func(_ context.Context, a notify.Attempt) error {
		seen = append(seen, a.Subscription.Target)
		return errors.New("ignored")
	})

	if err := h.OnModelSaved(context.Background(), &comment{ID: 1, User: "bob"}, true); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 observed attempts, got %v", seen)
	}
	if h.Sent() != 2 {
		t.Fatalf("sent = %d, want 2", h.Sent())
	}

	cancel()
	_ = h.OnModelSaved(context.Background(), &comment{ID: 2, User: "bob"}, true)
	if len(seen) != 2 {
		t.Fatal("cancelled observer still called")
	}
}

func TestFailingTargetDoesNotSurface(t *testing.T) {
	rc, url := receiver(t, http.StatusInternalServerError)
	h := newHooks(t)
	subscribe(t, h, "bob", "comment.added", url+"/down")

	if err := h.OnModelSaved(context.Background(), &comment{ID: 1, User: "bob"}, true); err != nil {
		t.Fatalf("delivery failure leaked to caller: %v", err)
	}
	if len(rc.get("/down")) != 1 {
		t.Fatal("expected exactly one attempt")
	}
}

func TestGoneRemovesSubscription(t *testing.T) {
	_, url := receiver(t, http.StatusGone)
	h := newHooks(t, resthook.WithCleanupGone(true))
	sub := subscribe(t, h, "bob", "comment.added", url+"/gone")

	if err := h.OnModelSaved(context.Background(), &comment{ID: 1, User: "bob"}, true); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Subscriptions().Get(context.Background(), sub.ID); !errors.Is(err, resthook.ErrSubscriptionNotFound) {
		t.Fatalf("expected subscription to be removed, got %v", err)
	}
}

func TestGoneKeptWithoutCleanup(t *testing.T) {
	_, url := receiver(t, http.StatusGone)
	h := newHooks(t)
	sub := subscribe(t, h, "bob", "comment.added", url+"/gone")

	_ = h.OnModelSaved(context.Background(), &comment{ID: 1, User: "bob"}, true)
	if _, err := h.Subscriptions().Get(context.Background(), sub.ID); err != nil {
		t.Fatalf("subscription should survive a 410 without cleanup: %v", err)
	}
}

// ──────────────────────────────────────────────────
// Reload and threading
// ──────────────────────────────────────────────────

func TestReload(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t)
	subscribe(t, h, "bob", "comment.added", url+"/added")

	err := h.Reload(catalog.Events{"a": "blog.Comment.created", "b": "blog.Comment.created"})
	var cfgErr *resthook.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	_ = h.OnModelSaved(context.Background(), &comment{ID: 1, User: "bob"}, true)
	if len(rc.get("/added")) != 1 {
		t.Fatal("previous configuration should stay in effect")
	}

	if err := h.Reload(catalog.Events{"comment.added": "blog.Comment.published"}); err != nil {
		t.Fatal(err)
	}
	_ = h.OnModelSaved(context.Background(), &comment{ID: 2, User: "bob"}, true)
	_ = h.OnCustomEvent(context.Background(), "published", &comment{ID: 3, User: "bob"}, subscription.Scope{})

	got := rc.get("/added")
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries after reload, got %d", len(got))
	}
	if got[1]["data"].(map[string]any)["pk"] != float64(3) {
		t.Fatalf("unexpected second delivery: %v", got[1])
	}
}

func TestThreadedDeliveryDrains(t *testing.T) {
	rc, url := receiver(t, http.StatusOK)
	h := newHooks(t, resthook.WithThreading(true))
	subscribe(t, h, "bob", "comment.added", url+"/hook")

	const n = 10
	for i := 0; i < n; i++ {
		if err := h.OnModelSaved(context.Background(), &comment{ID: i, User: "bob"}, true); err != nil {
			t.Fatal(err)
		}
	}

	h.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Drain(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := len(rc.get("/hook")); got != n {
		t.Fatalf("expected %d deliveries, got %d", n, got)
	}
	if h.Sent() != n {
		t.Fatalf("sent = %d, want %d", h.Sent(), n)
	}
	if h.Pending() != 0 {
		t.Fatalf("pending = %d after drain", h.Pending())
	}
}
