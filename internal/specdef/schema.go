// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package specdef parses server spec definitions and converts forms between
// their text representation and field-keyed records.
//
// A spec definition is a ";;"-separated list of field elements. Each element
// starts with the field name followed by ";"-separated attributes, for example
//
//	Client;code:301;rq;ro;len:32;;View;code:311;type:wlist;words:2;len:64;;
//
// Fields of type wlist and llist are multi-valued; text and bulk fields hold a
// single multi-line value; every other type holds a single line.
package specdef

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldType is the declared type of a form field.
type FieldType int

const (
	Word FieldType = iota
	WordList
	Select
	Line
	LineList
	Date
	Text
	Bulk
)

var fieldTypes = map[string]FieldType{
	"word":   Word,
	"wlist":  WordList,
	"select": Select,
	"line":   Line,
	"llist":  LineList,
	"date":   Date,
	"text":   Text,
	"bulk":   Bulk,
}

var fieldTypeNames = [...]string{"word", "wlist", "select", "line", "llist", "date", "text", "bulk"}

func (t FieldType) String() string {
	if t < 0 || int(t) >= len(fieldTypeNames) {
		return "unknown"
	}
	return fieldTypeNames[t]
}

// Field describes one form field.
type Field struct {
	Name     string
	Code     int
	Type     FieldType
	Words    int
	Len      int
	Seq      int
	Format   string
	Required bool
	ReadOnly bool
	Values   string
	Preset   string
}

// IsList reports whether the field holds an ordered list of lines.
func (f Field) IsList() bool { return f.Type == WordList || f.Type == LineList }

// IsText reports whether the field holds one multi-line value.
func (f Field) IsText() bool { return f.Type == Text || f.Type == Bulk }

// Schema is the ordered field list of one form type. It is immutable once built.
type Schema struct {
	Type   string
	fields []Field
	index  map[string]int
}

// Parse builds the schema of typ from a spec definition string.
func Parse(typ, def string) (*Schema, error) {
	s := &Schema{Type: typ, index: make(map[string]int)}
	for _, elem := range strings.Split(def, ";;") {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}
		f, err := parseField(elem)
		if err != nil {
			return nil, fmt.Errorf("spec definition for %s: %w", typ, err)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("spec definition for %s: duplicate field %q", typ, f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	if len(s.fields) == 0 {
		return nil, fmt.Errorf("spec definition for %s has no fields", typ)
	}
	return s, nil
}

func parseField(elem string) (Field, error) {
	tokens := strings.Split(elem, ";")
	f := Field{Name: strings.TrimSpace(tokens[0]), Words: 1}
	if f.Name == "" {
		return f, fmt.Errorf("field without a name in %q", elem)
	}
	for _, tok := range tokens[1:] {
		key, val, _ := strings.Cut(tok, ":")
		switch key {
		case "":
		case "rq":
			f.Required = true
		case "ro":
			f.ReadOnly = true
		case "type":
			ft, ok := fieldTypes[val]
			if !ok {
				return f, fmt.Errorf("field %q has unknown type %q", f.Name, val)
			}
			f.Type = ft
		case "code", "words", "len", "seq":
			n, err := strconv.Atoi(val)
			if err != nil {
				return f, fmt.Errorf("field %q: bad %s %q", f.Name, key, val)
			}
			switch key {
			case "code":
				f.Code = n
			case "words":
				f.Words = n
			case "len":
				f.Len = n
			case "seq":
				f.Seq = n
			}
		case "fmt":
			f.Format = val
		case "val":
			f.Values = val
		case "pre":
			f.Preset = val
		}
	}
	return f, nil
}

// Fields returns the fields in definition order.
func (s *Schema) Fields() []Field { return append([]Field(nil), s.fields...) }

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Names returns the field names in definition order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}
