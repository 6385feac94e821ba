package subscription_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xraph/resthook"
	"github.com/xraph/resthook/catalog"
	"github.com/xraph/resthook/store/memory"
	"github.com/xraph/resthook/subscription"
)

func ctx() context.Context { return context.Background() }

func newService() *subscription.Service {
	events := catalog.New(catalog.Events{
		"comment.added":     "blog.Comment.created",
		"comment.moderated": "blog.Comment.moderated+",
		"special.thing":     "",
	})
	return subscription.NewService(memory.New(), events, nil)
}

type comment struct {
	ID   int
	User string
}

func (c *comment) HookOwner() string { return c.User }

type user struct{ Name string }

func (u *user) HookPrincipal() string { return u.Name }

type orphan struct{ ID int }

func TestCreateAcceptsConfiguredEvents(t *testing.T) {
	svc := newService()

	for _, event := range []string{"comment.added", "comment.moderated", "special.thing"} {
		sub, err := svc.Create(ctx(), subscription.Input{
			Owner:  "bob",
			Event:  event,
			Target: "http://example.com/hook",
		})
		if err != nil {
			t.Fatalf("%s: %v", event, err)
		}
		if !strings.HasPrefix(sub.ID.String(), "hook_") {
			t.Fatalf("unexpected id %q", sub.ID)
		}
		if sub.CreatedAt.IsZero() {
			t.Fatal("expected created timestamp")
		}
	}
}

func TestCreateRejectsUnknownEvent(t *testing.T) {
	svc := newService()

	_, err := svc.Create(ctx(), subscription.Input{
		Owner:  "bob",
		Event:  "comment.eaten",
		Target: "http://example.com/hook",
	})
	var verr *resthook.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "event" {
		t.Fatalf("field = %q", verr.Field)
	}
}

func TestCreateRejectsBadTargets(t *testing.T) {
	svc := newService()

	for _, target := range []string{
		"",
		"not a url",
		"/relative/path",
		"ftp://example.com/hook",
		"http://example.com/" + strings.Repeat("a", 300),
	} {
		_, err := svc.Create(ctx(), subscription.Input{Owner: "bob", Event: "comment.added", Target: target})
		var verr *subscription.ValidationError
		if !errors.As(err, &verr) || verr.Field != "target" {
			t.Fatalf("%q: expected target ValidationError, got %v", target, err)
		}
	}
}

func TestCreateRequiresOwner(t *testing.T) {
	svc := newService()

	_, err := svc.Create(ctx(), subscription.Input{Event: "comment.added", Target: "http://example.com/hook"})
	var verr *subscription.ValidationError
	if !errors.As(err, &verr) || verr.Field != "owner" {
		t.Fatalf("expected owner ValidationError, got %v", err)
	}
}

func TestUpdateValidatesAndKeepsOwner(t *testing.T) {
	svc := newService()
	sub, _ := svc.Create(ctx(), subscription.Input{Owner: "bob", Event: "comment.added", Target: "http://example.com/a"})

	updated, err := svc.Update(ctx(), sub.ID, subscription.Input{Owner: "alice", Target: "http://example.com/b"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Owner != "bob" || updated.Event != "comment.added" || updated.Target != "http://example.com/b" {
		t.Fatalf("got %+v", updated)
	}

	if _, err := svc.Update(ctx(), sub.ID, subscription.Input{Event: "nope"}); err == nil {
		t.Fatal("expected validation error for unknown event")
	}
}

func TestDelete(t *testing.T) {
	svc := newService()
	sub, _ := svc.Create(ctx(), subscription.Input{Owner: "bob", Event: "comment.added", Target: "http://example.com/a"})

	if err := svc.Delete(ctx(), sub.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx(), sub.ID); !errors.Is(err, resthook.ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestFindMatchingScopes(t *testing.T) {
	svc := newService()
	for _, owner := range []string{"bob", "alice"} {
		if _, err := svc.Create(ctx(), subscription.Input{Owner: owner, Event: "comment.added", Target: "http://example.com/" + owner}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name     string
		instance any
		scope    subscription.Scope
		want     int
	}{
		{"owner from instance", &comment{User: "bob"}, subscription.Scope{}, 1},
		{"instance is principal", &user{Name: "alice"}, subscription.Scope{}, 1},
		{"explicit owner wins", &comment{User: "bob"}, subscription.ForOwner("alice"), 1},
		{"all owners", &comment{User: "bob"}, subscription.AllOwners(), 2},
		{"unknown owner", &comment{User: "carol"}, subscription.Scope{}, 0},
		{"explicit owner without instance", nil, subscription.ForOwner("bob"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs, err := svc.FindMatching(ctx(), "comment.added", tt.instance, tt.scope)
			if err != nil {
				t.Fatal(err)
			}
			if len(subs) != tt.want {
				t.Fatalf("got %d subscriptions, want %d", len(subs), tt.want)
			}
		})
	}
}

func TestFindMatchingWithoutOwner(t *testing.T) {
	svc := newService()

	_, err := svc.FindMatching(ctx(), "comment.added", &orphan{ID: 1}, subscription.Scope{})
	var oerr *subscription.OwnerResolutionError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected OwnerResolutionError, got %v", err)
	}
	if !errors.Is(err, resthook.ErrResolution) {
		t.Fatal("OwnerResolutionError should match ErrResolution")
	}
}

func TestFindAllOwners(t *testing.T) {
	svc := newService()
	_, _ = svc.Create(ctx(), subscription.Input{Owner: "bob", Event: "special.thing", Target: "http://example.com/b"})
	_, _ = svc.Create(ctx(), subscription.Input{Owner: "alice", Event: "special.thing", Target: "http://example.com/a"})

	subs, err := svc.Find(ctx(), "special.thing", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2, got %d", len(subs))
	}
}
