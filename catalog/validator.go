package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator checks raw event payloads against per-event JSON Schema
// documents. Schemas compile on first use and stay cached for the
// validator's lifetime.
type Validator struct {
	schemas map[string]any

	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewValidator returns a validator for the given event schemas.
func NewValidator(schemas map[string]any) *Validator {
	return &Validator{
		schemas:  schemas,
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Validate checks data against the schema of event. Events without a schema
// always pass.
func (v *Validator) Validate(event string, data any) error {
	if _, ok := v.schemas[event]; !ok {
		return nil
	}

	schema, err := v.compile(event)
	if err != nil {
		return fmt.Errorf("schema for %q: %w", event, err)
	}

	// Round-trip through JSON so structs validate the way receivers see them.
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return schema.Validate(doc)
}

func (v *Validator) compile(event string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	if s, ok := v.compiled[event]; ok {
		v.mu.RUnlock()
		return s, nil
	}
	v.mu.RUnlock()

	raw, err := json.Marshal(v.schemas[event])
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	loc := "resthook://schema/" + url.PathEscape(event)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(loc, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := c.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.mu.Lock()
	v.compiled[event] = s
	v.mu.Unlock()
	return s, nil
}
