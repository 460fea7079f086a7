// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package attrs provides typed, name-keyed attribute tables. Each attribute is
// an integer, string or object descriptor with a getter and an optional
// setter; a missing setter makes the attribute read-only. A Registry resolves
// names across the three kinds in a fixed priority order (integer, string,
// object) and dispatches generic get and set calls to the matching descriptor.
//
// Registries are built once and never mutated, so they can be shared freely.
package attrs

import (
	"fmt"
	"strconv"

	"p4go/cli/internal/errors"
)

// Kind is the value kind of an attribute.
type Kind int

const (
	Int Kind = iota
	String
	Object
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "integer"
	case String:
		return "string"
	case Object:
		return "object"
	}
	return "unknown"
}

// Descriptor describes one attribute of targets of type T.
type Descriptor[T any] struct {
	Name string
	Kind Kind

	getInt func(T) int
	setInt func(T, int) error
	getStr func(T) string
	setStr func(T, string) error
	getObj func(T) (any, error)
	setObj func(T, any) error
}

// IntAttr declares an integer attribute. A nil set makes it read-only.
func IntAttr[T any](name string, get func(T) int, set func(T, int) error) Descriptor[T] {
	return Descriptor[T]{Name: name, Kind: Int, getInt: get, setInt: set}
}

// StringAttr declares a string attribute. A nil set makes it read-only.
func StringAttr[T any](name string, get func(T) string, set func(T, string) error) Descriptor[T] {
	return Descriptor[T]{Name: name, Kind: String, getStr: get, setStr: set}
}

// ObjectAttr declares an object attribute. A nil set makes it read-only.
// Object setters receive values of any shape and validate them themselves.
func ObjectAttr[T any](name string, get func(T) (any, error), set func(T, any) error) Descriptor[T] {
	return Descriptor[T]{Name: name, Kind: Object, getObj: get, setObj: set}
}

// ReadOnly reports whether the attribute has no setter.
func (d Descriptor[T]) ReadOnly() bool {
	switch d.Kind {
	case Int:
		return d.setInt == nil
	case String:
		return d.setStr == nil
	}
	return d.setObj == nil
}

// Get returns the attribute value of target.
func (d Descriptor[T]) Get(target T) (any, error) {
	switch d.Kind {
	case Int:
		return d.getInt(target), nil
	case String:
		return d.getStr(target), nil
	}
	return d.getObj(target)
}

// Registry is an immutable set of attribute tables.
type Registry[T any] struct {
	tables [3]map[string]Descriptor[T]
	names  []string
}

// NewRegistry builds a registry. Declaring the same name twice within one
// kind panics.
func NewRegistry[T any](descriptors ...Descriptor[T]) *Registry[T] {
	r := &Registry[T]{}
	for i := range r.tables {
		r.tables[i] = make(map[string]Descriptor[T])
	}
	seen := make(map[string]bool)
	for _, d := range descriptors {
		table := r.tables[d.Kind]
		if _, dup := table[d.Name]; dup {
			panic(fmt.Sprintf("attrs: duplicate %s attribute %q", d.Kind, d.Name))
		}
		table[d.Name] = d
		if !seen[d.Name] {
			seen[d.Name] = true
			r.names = append(r.names, d.Name)
		}
	}
	return r
}

// Resolve finds the descriptor for name, preferring integer, then string,
// then object attributes.
func (r *Registry[T]) Resolve(name string) (Descriptor[T], bool) {
	for _, table := range r.tables {
		if d, ok := table[name]; ok {
			return d, true
		}
	}
	return Descriptor[T]{}, false
}

// Lookup finds the descriptor of one kind.
func (r *Registry[T]) Lookup(kind Kind, name string) (Descriptor[T], bool) {
	d, ok := r.tables[kind][name]
	return d, ok
}

// Names returns every attribute name in declaration order.
func (r *Registry[T]) Names() []string {
	return append([]string(nil), r.names...)
}

// Get returns the value of the named attribute.
func (r *Registry[T]) Get(target T, name string) (any, error) {
	d, ok := r.Resolve(name)
	if !ok {
		return nil, errors.New(errors.Attribute, fmt.Sprintf("no attribute named %q", name))
	}
	return d.Get(target)
}

// Set assigns v to the named attribute. An object setter always wins;
// otherwise v must be integer-shaped for an integer attribute or a string for
// a string attribute.
func (r *Registry[T]) Set(target T, name string, v any) error {
	if d, ok := r.tables[Object][name]; ok && d.setObj != nil {
		return d.setObj(target, v)
	}
	if n, ok := asInt(v); ok {
		if d, ok := r.tables[Int][name]; ok {
			if d.setInt == nil {
				return readOnly(name)
			}
			return d.setInt(target, n)
		}
		return r.mismatch(name, "integer", v)
	}
	if s, ok := v.(string); ok {
		if d, ok := r.tables[String][name]; ok {
			if d.setStr == nil {
				return readOnly(name)
			}
			return d.setStr(target, s)
		}
		return r.mismatch(name, "string", v)
	}
	return r.mismatch(name, "", v)
}

// SetText assigns a value given as text, converting it for integer
// attributes. It serves configuration files and command lines.
func (r *Registry[T]) SetText(target T, name, text string) error {
	if _, ok := r.tables[Object][name]; ok {
		return r.Set(target, name, text)
	}
	if _, ok := r.tables[Int][name]; ok {
		n, err := strconv.Atoi(text)
		if err != nil {
			return errors.Wrap(errors.Attribute, fmt.Sprintf("attribute %q expects an integer", name), err)
		}
		return r.Set(target, name, n)
	}
	return r.Set(target, name, text)
}

func (r *Registry[T]) mismatch(name, shape string, v any) error {
	if _, ok := r.Resolve(name); !ok {
		return errors.New(errors.Attribute, fmt.Sprintf("no attribute named %q", name))
	}
	if _, ok := r.tables[Object][name]; ok {
		return readOnly(name)
	}
	if shape == "" {
		return errors.New(errors.Attribute, fmt.Sprintf("attribute %q cannot be set to a value of type %T", name, v))
	}
	return errors.New(errors.Attribute, fmt.Sprintf("no %s attribute named %q", shape, name))
}

func readOnly(name string) error {
	return errors.New(errors.Attribute, fmt.Sprintf("attribute %q is read-only", name))
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
