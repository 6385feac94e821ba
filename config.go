package resthook

import (
	"time"

	"github.com/xraph/resthook/catalog"
	"github.com/xraph/resthook/delivery"
	"github.com/xraph/resthook/ratelimit"
)

// Config holds the configuration for a Hooks instance. The tags let it be
// decoded from YAML, JSON or a viper instance.
type Config struct {
	// Events maps event names to automatic descriptors ("app.Model.action",
	// optionally suffixed with "+"). An empty descriptor marks an event that
	// is only fired explicitly.
	Events catalog.Events `json:"hook_events" yaml:"hook_events" mapstructure:"hook_events"`

	// Schemas optionally maps event names to JSON Schema documents that raw
	// event payloads must satisfy.
	Schemas map[string]any `json:"hook_schemas,omitempty" yaml:"hook_schemas" mapstructure:"hook_schemas"`

	// Threading selects the worker pool. When false every delivery runs on
	// the caller's goroutine.
	Threading bool `json:"threading" yaml:"threading" mapstructure:"threading"`

	// Workers is the size of the delivery pool.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// RequestTimeout bounds each outbound request.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`

	// TargetRateLimit caps requests per second to each target host. Zero
	// disables throttling.
	TargetRateLimit float64 `json:"target_rate_limit" yaml:"target_rate_limit" mapstructure:"target_rate_limit"`

	// TargetBurst is the number of requests a host may receive at once
	// before TargetRateLimit applies.
	TargetBurst int `json:"target_burst" yaml:"target_burst" mapstructure:"target_burst"`

	// CleanupGone deletes a subscription whose target answers 410 Gone.
	CleanupGone bool `json:"cleanup_gone" yaml:"cleanup_gone" mapstructure:"cleanup_gone"`

	// ShutdownTimeout is the maximum time Stop waits for queued deliveries.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Events:          catalog.Events{},
		Threading:       true,
		Workers:         delivery.DefaultWorkers,
		RequestTimeout:  delivery.DefaultTimeout,
		TargetBurst:     1,
		ShutdownTimeout: 30 * time.Second,
	}
}

// limiter returns the per-host throttle the configuration asks for, or nil.
func (c Config) limiter() delivery.Limiter {
	if c.TargetRateLimit <= 0 {
		return nil
	}
	return ratelimit.New(c.TargetRateLimit, c.TargetBurst)
}
