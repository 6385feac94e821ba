package nsqqueue_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nsqio/go-nsq"

	"github.com/xraph/resthook/delivery"
	"github.com/xraph/resthook/delivery/nsqqueue"
	"github.com/xraph/resthook/id"
)

type fakeProducer struct {
	mu     sync.Mutex
	topics []string
	bodies [][]byte
	err    error
}

func (p *fakeProducer) Publish(topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.bodies = append(p.bodies, body)
	return nil
}

// delegate counts responses so tests can run messages without nsqd.
type delegate struct {
	finished atomic.Int32
	requeued atomic.Int32
}

func (d *delegate) OnFinish(*nsq.Message)                      { d.finished.Add(1) }
func (d *delegate) OnRequeue(*nsq.Message, time.Duration, bool) { d.requeued.Add(1) }
func (d *delegate) OnTouch(*nsq.Message)                       {}

func message(body []byte, d *delegate) *nsq.Message {
	var mid nsq.MessageID
	copy(mid[:], "0123456789abcdef")
	m := nsq.NewMessage(mid, body)
	m.Delegate = d
	return m
}

func TestPublishThenConsume(t *testing.T) {
	var (
		gotBody  string
		gotEvent string
		hits     atomic.Int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotEvent = r.Header.Get("X-Hook-Event")
		hits.Add(1)
	}))
	defer srv.Close()

	prod := &fakeProducer{}
	pub := nsqqueue.NewPublisher(prod, "", nil)

	req := delivery.NewRequest(http.MethodPost, srv.URL, []byte(`{"a":1}`),
		map[string]string{"Content-Type": "application/json"})
	req.SubscriptionID = id.NewSubscriptionID()
	req.Event = "book.sold"
	if err := pub.Enqueue(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if len(prod.bodies) != 1 || prod.topics[0] != nsqqueue.DefaultTopic {
		t.Fatalf("expected one message on %s, got %v", nsqqueue.DefaultTopic, prod.topics)
	}

	d := &delegate{}
	c := nsqqueue.NewConsumer(context.Background(), delivery.ExecutorConfig{}, nil)
	if err := c.HandleMessage(message(prod.bodies[0], d)); err != nil {
		t.Fatal(err)
	}

	if hits.Load() != 1 || gotBody != `{"a":1}` || gotEvent != "book.sold" {
		t.Fatalf("unexpected delivery: hits=%d body=%q event=%q", hits.Load(), gotBody, gotEvent)
	}
	if d.finished.Load() != 1 || d.requeued.Load() != 0 {
		t.Fatalf("expected a single finish, got finished=%d requeued=%d", d.finished.Load(), d.requeued.Load())
	}
	if c.Sent() != 1 {
		t.Fatalf("sent = %d", c.Sent())
	}
}

func TestFailedDeliveryIsNotRequeued(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	prod := &fakeProducer{}
	pub := nsqqueue.NewPublisher(prod, "hooks", nil)
	if err := delivery.Post(context.Background(), pub, srv.URL, []byte(`{}`), nil); err != nil {
		t.Fatal(err)
	}

	d := &delegate{}
	c := nsqqueue.NewConsumer(context.Background(), delivery.ExecutorConfig{}, nil)
	if err := c.HandleMessage(message(prod.bodies[0], d)); err != nil {
		t.Fatal(err)
	}
	if d.finished.Load() != 1 || d.requeued.Load() != 0 {
		t.Fatalf("finished=%d requeued=%d", d.finished.Load(), d.requeued.Load())
	}
}

func TestGoneRemovesSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	subID := id.NewSubscriptionID()
	var removed atomic.Value
	c := nsqqueue.NewConsumer(context.Background(), delivery.ExecutorConfig{
		OnGone: func(_ context.Context, got id.ID) error {
			removed.Store(got.String())
			return nil
		},
	}, nil)

	prod := &fakeProducer{}
	req := delivery.NewRequest(http.MethodPost, srv.URL, []byte(`{}`), nil)
	req.SubscriptionID = subID
	if err := nsqqueue.NewPublisher(prod, "", nil).Enqueue(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	_ = c.HandleMessage(message(prod.bodies[0], &delegate{}))

	if removed.Load() != subID.String() {
		t.Fatalf("expected %s removed, got %v", subID, removed.Load())
	}
}

func TestBadTaskIsFinished(t *testing.T) {
	d := &delegate{}
	c := nsqqueue.NewConsumer(context.Background(), delivery.ExecutorConfig{}, nil)
	if err := c.HandleMessage(message([]byte("not json"), d)); err != nil {
		t.Fatal(err)
	}
	if d.finished.Load() != 1 {
		t.Fatal("bad task should be finished")
	}
	if c.Sent() != 0 {
		t.Fatal("bad task should not be attempted")
	}
}

func TestPublishErrorIsReported(t *testing.T) {
	pub := nsqqueue.NewPublisher(&fakeProducer{err: errors.New("nsqd down")}, "", nil)
	err := delivery.Post(context.Background(), pub, "http://example.com", nil, nil)
	if err == nil {
		t.Fatal("expected publish error")
	}
}

func TestTaskRoundTripKeepsIDs(t *testing.T) {
	req := delivery.NewRequest(http.MethodPut, "http://example.com/x", []byte("raw"), map[string]string{"A": "b"})
	req.SubscriptionID = id.NewSubscriptionID()
	req.Event = "e"

	back := nsqqueue.NewTask(context.Background(), req).Request()
	if back.ID.String() != req.ID.String() || back.SubscriptionID.String() != req.SubscriptionID.String() {
		t.Fatalf("ids changed: %s/%s", back.ID, back.SubscriptionID)
	}
	if back.Method != http.MethodPut || string(back.Body) != "raw" || back.Headers["A"] != "b" || back.Event != "e" {
		t.Fatalf("unexpected request: %+v", back)
	}
}
