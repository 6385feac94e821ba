// Package nsqqueue is a durable delivery backend on NSQ. A Publisher
// enqueues each request as a JSON task on a topic; a Consumer reads the
// topic and makes the single HTTP attempt. Requests survive a restart of
// the publishing process.
package nsqqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nsqio/go-nsq"

	"github.com/xraph/resthook/delivery"
	"github.com/xraph/resthook/id"
	"github.com/xraph/resthook/observability"
)

// DefaultTopic is the topic deliveries are published to.
const DefaultTopic = "resthook.deliveries"

// DefaultChannel is the channel consumers read from.
const DefaultChannel = "resthook-workers"

// Producer publishes a message body to a topic. *nsq.Producer satisfies it.
type Producer interface {
	Publish(topic string, body []byte) error
}

// Task is the wire form of a delivery request.
type Task struct {
	DeliveryID     string            `json:"delivery_id"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	Event          string            `json:"event,omitempty"`
	Method         string            `json:"method"`
	URL            string            `json:"url"`
	Body           []byte            `json:"body,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	PublishedAt    string            `json:"published_at"`
	TraceHeaders   map[string]string `json:"trace_headers,omitempty"`
}

// NewTask converts a request to its wire form.
func NewTask(ctx context.Context, req *delivery.Request) Task {
	t := Task{
		DeliveryID:   req.ID.String(),
		Event:        req.Event,
		Method:       req.Method,
		URL:          req.URL,
		Body:         req.Body,
		Headers:      req.Headers,
		PublishedAt:  time.Now().UTC().Format(time.RFC3339),
		TraceHeaders: observability.InjectHeaders(ctx),
	}
	if !req.SubscriptionID.IsNil() {
		t.SubscriptionID = req.SubscriptionID.String()
	}
	return t
}

// Request converts the task back to a delivery request. Unparseable IDs are
// left nil; a task without a subscription ID is never cleaned up on 410.
func (t Task) Request() *delivery.Request {
	req := &delivery.Request{
		Method:  t.Method,
		URL:     t.URL,
		Body:    t.Body,
		Headers: t.Headers,
		Event:   t.Event,
	}
	if did, err := id.ParseDeliveryID(t.DeliveryID); err == nil {
		req.ID = did
	} else {
		req.ID = id.NewDeliveryID()
	}
	if t.SubscriptionID != "" {
		if sid, err := id.ParseSubscriptionID(t.SubscriptionID); err == nil {
			req.SubscriptionID = sid
		}
	}
	return req
}

// ──────────────────────────────────────────────────
// Publisher
// ──────────────────────────────────────────────────

// compile-time interface check.
var _ delivery.Dispatcher = (*Publisher)(nil)

// Publisher is a delivery.Dispatcher that publishes to NSQ.
type Publisher struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

// NewPublisher creates a publisher. An empty topic means DefaultTopic.
func NewPublisher(producer Producer, topic string, logger *slog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

// Enqueue publishes req. Unlike the in-process backends it reports a
// failure to hand the task to nsqd.
func (p *Publisher) Enqueue(ctx context.Context, req *delivery.Request) error {
	b, err := json.Marshal(NewTask(ctx, req))
	if err != nil {
		return fmt.Errorf("nsqqueue: encode task: %w", err)
	}
	if err := p.producer.Publish(p.topic, b); err != nil {
		return fmt.Errorf("nsq publish: %w", err)
	}
	p.logger.DebugContext(ctx, "resthook: delivery published",
		"delivery_id", req.ID, "topic", p.topic, "url", req.URL)
	return nil
}

// ──────────────────────────────────────────────────
// Consumer
// ──────────────────────────────────────────────────

// compile-time interface check.
var _ nsq.Handler = (*Consumer)(nil)

// Consumer is an nsq.Handler that attempts each task once. Every message is
// finished, whatever the outcome; nothing is requeued.
type Consumer struct {
	ctx    context.Context
	exec   *delivery.Executor
	logger *slog.Logger
}

// NewConsumer creates a consumer. ctx bounds every attempt.
func NewConsumer(ctx context.Context, cfg delivery.ExecutorConfig, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		ctx:    ctx,
		exec:   delivery.NewExecutor(cfg, logger),
		logger: logger,
	}
}

// HandleMessage implements nsq.Handler.
func (c *Consumer) HandleMessage(m *nsq.Message) error {
	m.DisableAutoResponse()
	defer func() {
		if !m.HasResponded() {
			m.Finish()
		}
	}()

	var t Task
	if err := json.Unmarshal(m.Body, &t); err != nil {
		c.logger.Error("resthook: bad delivery task", "error", err)
		m.Finish()
		return nil
	}

	ctx := observability.ExtractHeaders(c.ctx, t.TraceHeaders)
	c.exec.Execute(ctx, t.Request())
	m.Finish()
	return nil
}

// Sent returns the number of attempts made.
func (c *Consumer) Sent() int64 { return c.exec.Sent() }
