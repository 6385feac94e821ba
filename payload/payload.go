// Package payload builds the JSON document delivered for a subscription.
//
// Resolution order, first match wins:
//
//  1. the instance implements HookSerializer;
//  2. a global Serializer is configured;
//  3. the default envelope {hook: {id, event, target}, data: {model, pk, fields}}.
package payload

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/xraph/resthook/model"
	"github.com/xraph/resthook/subscription"
)

// HookSerializer is implemented by instances that shape their own payload.
// The returned value is delivered verbatim.
type HookSerializer interface {
	SerializeHook(sub *subscription.Subscription) (any, error)
}

// Serializer is a process-wide payload strategy.
type Serializer interface {
	Serialize(instance any, sub *subscription.Subscription) (any, error)
}

// SerializerFunc adapts a function to Serializer.
type SerializerFunc func(instance any, sub *subscription.Subscription) (any, error)

// Serialize calls f.
func (f SerializerFunc) Serialize(instance any, sub *subscription.Subscription) (any, error) {
	return f(instance, sub)
}

// Envelope wraps data with the subscription summary.
type Envelope struct {
	Hook subscription.Summary `json:"hook"`
	Data any                  `json:"data"`
}

// Wrap returns data in an envelope for sub.
func Wrap(sub *subscription.Subscription, data any) Envelope {
	return Envelope{Hook: sub.Summary(), Data: data}
}

// Record is the default reflective rendering of an instance.
type Record struct {
	Model  string         `json:"model"`
	PK     any            `json:"pk"`
	Fields map[string]any `json:"fields"`
}

// Builder resolves the payload for a subscription and instance.
type Builder struct {
	serializer Serializer
}

// NewBuilder returns a builder. serializer may be nil.
func NewBuilder(serializer Serializer) *Builder {
	return &Builder{serializer: serializer}
}

// Build returns the payload to deliver to sub for instance.
func (b *Builder) Build(sub *subscription.Subscription, instance any) (any, error) {
	if hs, ok := instance.(HookSerializer); ok {
		return hs.SerializeHook(sub)
	}
	if b.serializer != nil {
		return b.serializer.Serialize(instance, sub)
	}
	rec, err := Reflect(instance)
	if err != nil {
		return nil, err
	}
	return Wrap(sub, rec), nil
}

// Reflect renders the exported fields of a struct instance. Fields are keyed
// by their json tag name; `json:"-"` fields and the primary key field are
// left out of Fields. Untagged embedded structs are flattened into their
// parent, and an outer field wins over a promoted one of the same name.
func Reflect(instance any) (*Record, error) {
	v := model.Indirect(instance)
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("payload: cannot serialize %T, implement payload.HookSerializer or configure a Serializer", instance)
	}

	pk, pkField := model.PK(instance)
	rec := &Record{
		Model:  model.Name(instance),
		PK:     normalize(pk),
		Fields: make(map[string]any),
	}
	collect(v, pkField, rec.Fields)
	return rec, nil
}

// collect adds the fields of struct v to out. Direct fields are added before
// promoted ones so that they take precedence.
func collect(v reflect.Value, skip string, out map[string]any) {
	t := v.Type()
	var embedded []reflect.Value
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || (skip != "" && f.Name == skip) {
			continue
		}
		name, ok := fieldName(f)
		if !ok {
			continue
		}
		fv := v.Field(i)
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != timeType && !isOpaque(ft) {
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() {
						continue
					}
					fv = fv.Elem()
				}
				embedded = append(embedded, fv)
				continue
			}
		}
		if name == "" {
			name = f.Name
		}
		out[name] = normalizeValue(fv)
	}

	for _, inner := range embedded {
		promoted := make(map[string]any)
		collect(inner, "", promoted)
		for k, val := range promoted {
			if _, taken := out[k]; !taken {
				out[k] = val
			}
		}
	}
}

// fieldName returns the json name of f, "" when untagged, and false when the
// field is excluded.
func fieldName(f reflect.StructField) (string, bool) {
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return "", false
	}
	return name, true
}

// FormatTime renders t the way the surrounding framework's JSON encoder
// does: ISO-8601, milliseconds when the microseconds are non-zero, and "Z"
// for UTC.
func FormatTime(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) != 0 {
		return t.Format("2006-01-02T15:04:05.000Z07:00")
	}
	return t.Format("2006-01-02T15:04:05Z07:00")
}

var (
	timeType          = reflect.TypeOf(time.Time{})
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

func normalize(v any) any {
	return normalizeValue(reflect.ValueOf(v))
}

// normalizeValue formats times at any depth. Nested structs become maps so
// that their times can be rewritten; types with their own JSON or text
// encoding are left to it.
func normalizeValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.Type() == timeType {
		return FormatTime(v.Interface().(time.Time))
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Pointer && isOpaque(v.Type()) {
			return v.Interface()
		}
		return normalizeValue(v.Elem())

	case reflect.Struct:
		if isOpaque(v.Type()) {
			return v.Interface()
		}
		out := make(map[string]any)
		collect(v, "", out)
		return out

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String || isOpaque(v.Type()) {
			return v.Interface()
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalizeValue(iter.Value())
		}
		return out

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 || isOpaque(v.Type()) {
			return v.Interface()
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = normalizeValue(v.Index(i))
		}
		return out

	default:
		return v.Interface()
	}
}

// isOpaque reports whether t encodes itself.
func isOpaque(t reflect.Type) bool {
	if t == timeType || (t.Kind() == reflect.Pointer && t.Elem() == timeType) {
		return false
	}
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return true
	}
	if t.Kind() == reflect.Pointer {
		return false
	}
	pt := reflect.PointerTo(t)
	return pt.Implements(jsonMarshalerType) || pt.Implements(textMarshalerType)
}
