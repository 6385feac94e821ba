package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the resthook instruments. A nil *Metrics records nothing.
type Metrics struct {
	EventsFiredTotal     *prometheus.CounterVec
	DeliveriesTotal      *prometheus.CounterVec
	DeliveryLatency      prometheus.Histogram
	PendingDeliveries    prometheus.Gauge
	PipelineErrorsTotal  *prometheus.CounterVec
	SubscriptionsRemoved prometheus.Counter
}

// NewMetrics creates the instruments and registers them with reg. A nil reg
// creates unregistered instruments.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsFiredTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "resthook_events_fired_total",
			Help: "Events resolved to a configured name and fanned out to subscriptions.",
		}, []string{"event"}),
		DeliveriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "resthook_deliveries_total",
			Help: "Completed delivery attempts by outcome.",
		}, []string{"status"}),
		DeliveryLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "resthook_delivery_latency_seconds",
			Help:    "Latency of outbound hook requests.",
			Buckets: prometheus.DefBuckets,
		}),
		PendingDeliveries: f.NewGauge(prometheus.GaugeOpts{
			Name: "resthook_pending_deliveries",
			Help: "Deliveries queued but not yet attempted.",
		}),
		PipelineErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "resthook_pipeline_errors_total",
			Help: "Per-subscription failures isolated by the pipeline, by stage.",
		}, []string{"stage"}),
		SubscriptionsRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "resthook_subscriptions_removed_total",
			Help: "Subscriptions deleted after their target answered 410 Gone.",
		}),
	}
}

// RecordDelivery records a delivery attempt with the given status and latency.
func (m *Metrics) RecordDelivery(status string, latencySeconds float64) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(status).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}

// RecordFired counts one fan-out of event.
func (m *Metrics) RecordFired(event string) {
	if m == nil {
		return
	}
	m.EventsFiredTotal.WithLabelValues(event).Inc()
}

// RecordPipelineError counts an isolated failure at stage (build, validate,
// deliver, observer, panic).
func (m *Metrics) RecordPipelineError(stage string) {
	if m == nil {
		return
	}
	m.PipelineErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordRemoved counts a subscription removed on 410.
func (m *Metrics) RecordRemoved() {
	if m == nil {
		return
	}
	m.SubscriptionsRemoved.Inc()
}

// SetPending reports the current queue depth.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingDeliveries.Set(float64(n))
}
