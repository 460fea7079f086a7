// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package specdef

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"p4go/cli/internal/bridge/model"
	"p4go/cli/internal/errors"
)

// Fetcher retrieves the raw spec definition of a form type from the server.
type Fetcher func(ctx context.Context, typ string) (string, error)

// Cache holds parsed schemas keyed by form type. A schema, once cached, is
// kept until Reset. Built-in definitions for common form types are loaded
// at construction and after every Reset; the first definition the server
// sends for such a type replaces the built-in one.
type Cache struct {
	// schemas stores parsed schemas keyed by form type
	schemas map[string]*Schema
	// fallback marks schemas that came from the built-in table
	fallback map[string]bool
	// mu protects concurrent access to schemas
	mu sync.RWMutex
}

// NewCache creates a cache preloaded with the built-in definitions.
func NewCache() *Cache {
	c := &Cache{}
	c.Reset()
	return c
}

// Reset drops every cached schema and reloads the built-in definitions.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas = make(map[string]*Schema, len(builtin))
	c.fallback = make(map[string]bool, len(builtin))
	for typ, def := range builtin {
		s, err := Parse(typ, def)
		if err != nil {
			panic(fmt.Sprintf("specdef: built-in %s definition: %v", typ, err))
		}
		c.schemas[typ] = s
		c.fallback[typ] = true
	}
}

// Have reports whether a schema for typ is cached.
func (c *Cache) Have(typ string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.schemas[typ]
	return ok
}

// Get returns the cached schema for typ.
func (c *Cache) Get(typ string) (*Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[typ]
	return s, ok
}

// Put parses def and caches it for typ. A type already cached from the
// server keeps its existing schema.
func (c *Cache) Put(typ, def string) error {
	if c.fixed(typ) {
		return nil
	}
	s, err := Parse(typ, def)
	if err != nil {
		return errors.Wrap(errors.SpecConversion, "invalid spec definition", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.schemas[typ]; !ok || c.fallback[typ] {
		c.schemas[typ] = s
		delete(c.fallback, typ)
	}
	return nil
}

func (c *Cache) fixed(typ string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.schemas[typ]
	return ok && !c.fallback[typ]
}

// Types returns the cached form types in sorted order.
func (c *Cache) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]string, 0, len(c.schemas))
	for typ := range c.schemas {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// FetchAndCache returns the schema for typ, calling fetch the first time the
// type is needed. A fetch failure is returned as is and nothing is cached.
func (c *Cache) FetchAndCache(ctx context.Context, typ string, fetch Fetcher) (*Schema, error) {
	if s, ok := c.Get(typ); ok {
		return s, nil
	}
	def, err := fetch(ctx, typ)
	if err != nil {
		return nil, err
	}
	if def == "" {
		return nil, unknownType(typ)
	}
	if err := c.Put(typ, def); err != nil {
		return nil, err
	}
	s, _ := c.Get(typ)
	return s, nil
}

// Fields returns the field names of typ in definition order.
func (c *Cache) Fields(typ string) ([]string, error) {
	s, ok := c.Get(typ)
	if !ok {
		return nil, unknownType(typ)
	}
	return s.Names(), nil
}

// ParseText converts form text of typ into a record.
func (c *Cache) ParseText(typ, text string) (*model.Record, error) {
	s, ok := c.Get(typ)
	if !ok {
		return nil, unknownType(typ)
	}
	rec, err := s.ParseText(text)
	if err != nil {
		return nil, errors.Wrap(errors.SpecConversion, "Error converting string to a record.", err)
	}
	return rec, nil
}

// FormatRecord converts a record of typ into form text.
func (c *Cache) FormatRecord(typ string, rec *model.Record) (string, error) {
	s, ok := c.Get(typ)
	if !ok {
		return "", unknownType(typ)
	}
	text, err := s.FormatRecord(rec)
	if err != nil {
		return "", errors.Wrap(errors.SpecConversion, "Error converting record to a string.", err)
	}
	return text, nil
}

// UnknownTypeMessage is the message reported for a type with no schema.
func UnknownTypeMessage(typ string) string {
	return "No spec definition for " + typ + " objects."
}

func unknownType(typ string) error {
	return errors.New(errors.SpecUnknown, UnknownTypeMessage(typ))
}
