// Package model defines the optional capabilities a triggering instance can
// implement, and the reflective fallbacks used when it does not.
package model

import (
	"reflect"
	"strings"
)

// Modeler names the model of an instance, e.g. "blog.Comment".
type Modeler interface {
	HookModel() string
}

// Keyed exposes the primary key of an instance.
type Keyed interface {
	HookPK() any
}

// Owned is implemented by instances that belong to a principal.
type Owned interface {
	HookOwner() string
}

// Principal is implemented by instances that are themselves subscription
// owners, such as user records.
type Principal interface {
	HookPrincipal() string
}

// Name returns the model identifier of instance. Without Modeler it is the
// last element of the type's package path joined to the type name, so a
// *blog.Comment from ".../blog" is "blog.Comment".
func Name(instance any) string {
	if m, ok := instance.(Modeler); ok {
		return m.HookModel()
	}

	t := reflect.TypeOf(instance)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	pkg := t.PkgPath()
	if i := strings.LastIndex(pkg, "/"); i >= 0 {
		pkg = pkg[i+1:]
	}
	if pkg == "" {
		return t.Name()
	}
	return pkg + "." + t.Name()
}

// PK returns the primary key of instance: HookPK when implemented, else a
// struct field tagged `hook:"pk"`, else a field named ID. The second result
// is the name of the field the key was read from.
func PK(instance any) (pk any, field string) {
	if k, ok := instance.(Keyed); ok {
		return k.HookPK(), ""
	}

	v := Indirect(instance)
	if v.Kind() != reflect.Struct {
		return nil, ""
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && f.Tag.Get("hook") == "pk" {
			return v.Field(i).Interface(), f.Name
		}
	}
	if f, ok := t.FieldByName("ID"); ok && f.IsExported() && len(f.Index) == 1 {
		return v.FieldByIndex(f.Index).Interface(), f.Name
	}
	return nil, ""
}

// Owner returns the owner an instance's events are scoped to. Owned wins
// over Principal.
func Owner(instance any) (string, bool) {
	if o, ok := instance.(Owned); ok {
		return o.HookOwner(), true
	}
	if p, ok := instance.(Principal); ok {
		return p.HookPrincipal(), true
	}
	return "", false
}

// Indirect dereferences pointers until it reaches a non-pointer value.
func Indirect(instance any) reflect.Value {
	v := reflect.ValueOf(instance)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
