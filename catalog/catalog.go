// Package catalog holds the event configuration and resolves triggers to
// configured event names.
//
// The configuration maps each event name to an optional automatic descriptor
// ("app.Model.action", with a trailing "+" for events that ignore the
// subscription owner). From it the catalog derives an index keyed by
// (model, action). The index is built on first use and replaced as a whole on
// Reload, so concurrent resolvers never see a partial index.
package catalog

import (
	"log/slog"
	"sort"
	"sync"
)

// Events maps an event name to its automatic descriptor. An empty descriptor
// means the event can only be fired explicitly.
type Events map[string]string

// Resolution is the outcome of a successful lookup.
type Resolution struct {
	Event     string
	AllOwners bool
}

// Query asks the explicit resolution path for an event.
type Query struct {
	Event  string
	Model  string
	Action string
	// Trust fires Event even when it is not configured.
	Trust bool
}

type key struct {
	model  string
	action string
}

// snapshot is immutable once published.
type snapshot struct {
	events      Events
	descriptors map[string]*Descriptor
	index       map[key]Resolution
	err         error
	built       bool
}

// Catalog is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	snap      *snapshot
	schemas   map[string]any
	validator *Validator
	logger    *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithSchemas attaches JSON Schema documents keyed by event name.
func WithSchemas(schemas map[string]any) Option {
	return func(c *Catalog) { c.schemas = schemas }
}

// WithLogger sets the catalog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) { c.logger = logger }
}

// New returns a catalog for events. The index is built lazily; call Build
// to surface configuration errors up front.
func New(events Events, opts ...Option) *Catalog {
	c := &Catalog{snap: &snapshot{events: copyEvents(events)}}
	for _, opt := range opts {
		opt(c)
	}
	c.validator = NewValidator(c.schemas)
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Build builds the index if needed and returns any configuration error.
func (c *Catalog) Build() error {
	return c.current().err
}

// Reload replaces the configuration. The new index is built before the swap;
// on error the previous configuration stays in effect.
func (c *Catalog) Reload(events Events) error {
	next := build(copyEvents(events))
	if next.err != nil {
		return next.err
	}

	c.mu.Lock()
	c.snap = next
	c.mu.Unlock()

	c.logger.Info("resthook: event configuration reloaded", "events", len(next.events))
	return nil
}

// Resolve looks up the event configured for model and action. A miss is
// reported with ok false and a nil error.
func (c *Catalog) Resolve(model, action string) (res Resolution, ok bool, err error) {
	s := c.current()
	if s.err != nil {
		return Resolution{}, false, s.err
	}
	res, ok = s.index[key{model: model, action: action}]
	return res, ok, nil
}

// ResolveEvent resolves an explicitly named event. Without a name it falls
// back to Resolve, which needs both model and action.
func (c *Catalog) ResolveEvent(q Query) (Resolution, bool, error) {
	if q.Event == "" {
		if q.Model == "" || q.Action == "" {
			return Resolution{}, false, &ResolutionError{Model: q.Model, Action: q.Action}
		}
		return c.Resolve(q.Model, q.Action)
	}

	s := c.current()
	if s.err != nil {
		return Resolution{}, false, s.err
	}

	d, configured := s.descriptors[q.Event]
	if q.Trust {
		res := Resolution{Event: q.Event}
		if configured && d != nil {
			res.AllOwners = d.IgnoreOwner
		}
		return res, true, nil
	}
	if !configured {
		return Resolution{}, false, nil
	}
	if d == nil {
		return Resolution{Event: q.Event}, true, nil
	}
	if (q.Model != "" && q.Model != d.Model) || (q.Action != "" && q.Action != d.Action) {
		return Resolution{}, false, nil
	}
	return Resolution{Event: q.Event, AllOwners: d.IgnoreOwner}, true, nil
}

// Has reports whether name is a configured event.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.snap.events[name]
	return ok
}

// Names returns the configured event names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.snap.events))
	for name := range c.snap.events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Events returns a copy of the current configuration.
func (c *Catalog) Events() Events {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyEvents(c.snap.events)
}

// ValidatePayload checks payload against the schema configured for event.
// Events without a schema always pass.
func (c *Catalog) ValidatePayload(event string, payload any) error {
	c.mu.RLock()
	v := c.validator
	c.mu.RUnlock()
	return v.Validate(event, payload)
}

// ReloadSchemas replaces the payload schemas and drops compiled ones.
func (c *Catalog) ReloadSchemas(schemas map[string]any) {
	v := NewValidator(schemas)
	c.mu.Lock()
	c.schemas = schemas
	c.validator = v
	c.mu.Unlock()
}

// current returns a built snapshot, building it under the write lock when
// the published one has not been indexed yet.
func (c *Catalog) current() *snapshot {
	c.mu.RLock()
	s := c.snap
	c.mu.RUnlock()
	if s.built {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.snap.built {
		c.snap = build(c.snap.events)
		if c.snap.err != nil {
			c.logger.Error("resthook: invalid event configuration", "error", c.snap.err)
		}
	}
	return c.snap
}

func build(events Events) *snapshot {
	s := &snapshot{
		events:      events,
		descriptors: make(map[string]*Descriptor, len(events)),
		index:       make(map[key]Resolution, len(events)),
		built:       true,
	}

	// Sorted so the reported duplicate does not depend on map order.
	names := make([]string, 0, len(events))
	for name := range events {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw := events[name]
		if raw == "" {
			s.descriptors[name] = nil
			continue
		}
		d, err := ParseDescriptor(name, raw)
		if err != nil {
			s.err = err
			return s
		}
		k := key{model: d.Model, action: d.Action}
		if prev, dup := s.index[k]; dup {
			s.err = &ConfigurationError{
				Event:      name,
				Descriptor: raw,
				Reason:     "duplicate descriptor, already used by " + prev.Event,
			}
			return s
		}
		s.descriptors[name] = &d
		s.index[k] = Resolution{Event: name, AllOwners: d.IgnoreOwner}
	}
	return s
}

func copyEvents(events Events) Events {
	out := make(Events, len(events))
	for k, v := range events {
		out[k] = v
	}
	return out
}

// Index returns a copy of the derived index keyed by "model.action".
func (c *Catalog) Index() (map[string]Resolution, error) {
	s := c.current()
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]Resolution, len(s.index))
	for k, r := range s.index {
		out[k.model+"."+k.action] = r
	}
	return out, nil
}
