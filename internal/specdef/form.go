// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package specdef

import (
	"fmt"
	"strings"

	"p4go/cli/internal/bridge/model"
)

// ParseText converts form text into a record whose fields follow the schema
// order. Comment lines start with '#'. A field starts at a line "Name:" with
// an optional value after the colon; indented lines that follow belong to it.
// Multi-valued fields take one element per indented line, text fields join
// their lines with a trailing newline, and other fields take a single line.
func (s *Schema) ParseText(text string) (*model.Record, error) {
	blocks, err := scan(text)
	if err != nil {
		return nil, err
	}

	values := make(map[string]model.Value, len(blocks))
	for _, b := range blocks {
		f, ok := s.Field(b.name)
		if !ok {
			return nil, fmt.Errorf("unknown field name %q in %s form", b.name, s.Type)
		}
		if _, seen := values[b.name]; seen {
			return nil, fmt.Errorf("field %q appears twice in %s form", b.name, s.Type)
		}
		lines := b.lines
		if len(lines) == 0 {
			continue
		}
		switch {
		case f.IsList():
			values[b.name] = model.List(lines...)
		case f.IsText():
			values[b.name] = model.Text(strings.Join(lines, "\n") + "\n")
		default:
			if len(lines) > 1 {
				return nil, fmt.Errorf("field %q of %s form takes a single line", b.name, s.Type)
			}
			values[b.name] = model.Text(lines[0])
		}
	}

	rec := model.NewRecord()
	for _, f := range s.fields {
		if v, ok := values[f.Name]; ok {
			rec.Set(f.Name, v)
		}
	}
	return rec, nil
}

// FormatRecord converts a record into form text in schema order. Fields the
// schema does not know are dropped and missing fields are omitted.
//
// Values that the form text cannot carry are rejected: list items and
// single-line values containing a line break. A few values are normalized
// instead, and ParseText does not restore them: surrounding blanks of a
// single-line value are trimmed, empty values and blank list items at either
// end of a list are dropped, blank interior items come back empty, and a text
// value always ends in a newline.
func (s *Schema) FormatRecord(rec *model.Record) (string, error) {
	var b strings.Builder
	for _, f := range s.fields {
		v, ok := rec.Get(f.Name)
		if !ok {
			continue
		}
		switch {
		case f.IsList():
			b.WriteString(f.Name + ":\n")
			for i, line := range v.Lines() {
				if strings.ContainsAny(line, "\r\n") {
					return "", fmt.Errorf("item %d of field %q of %s form holds a line break", i+1, f.Name, s.Type)
				}
				b.WriteString("\t" + line + "\n")
			}
		case f.IsText():
			if v.IsList() {
				return "", fmt.Errorf("field %q of %s form is not a list", f.Name, s.Type)
			}
			b.WriteString(f.Name + ":\n")
			for _, line := range strings.Split(strings.TrimSuffix(v.Text, "\n"), "\n") {
				b.WriteString("\t" + line + "\n")
			}
		default:
			if v.IsList() {
				return "", fmt.Errorf("field %q of %s form is not a list", f.Name, s.Type)
			}
			if strings.ContainsAny(v.Text, "\r\n") {
				return "", fmt.Errorf("field %q of %s form takes a single line", f.Name, s.Type)
			}
			b.WriteString(f.Name + ":\t" + v.Text + "\n")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

type block struct {
	name  string
	lines []string
}

// scan splits form text into field blocks. Blank lines inside an indented
// block are kept only when more indented lines follow.
func scan(text string) ([]block, error) {
	var (
		blocks  []block
		cur     *block
		pending int
	)
	for n, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")
		switch {
		case strings.HasPrefix(line, "#"):
			continue
		case strings.TrimSpace(line) == "":
			if cur != nil && len(cur.lines) > 0 {
				pending++
			}
			continue
		case line[0] == '\t' || line[0] == ' ':
			if cur == nil {
				return nil, fmt.Errorf("line %d: indented text outside a field", n+1)
			}
			for ; pending > 0; pending-- {
				cur.lines = append(cur.lines, "")
			}
			if strings.HasPrefix(line, "\t") {
				line = line[1:]
			} else {
				line = strings.TrimLeft(line, " ")
			}
			cur.lines = append(cur.lines, line)
			continue
		}

		name, rest, ok := strings.Cut(line, ":")
		if !ok || strings.ContainsAny(name, " \t") || name == "" {
			return nil, fmt.Errorf("line %d: expected \"Field:\", got %q", n+1, line)
		}
		blocks = append(blocks, block{name: name})
		cur = &blocks[len(blocks)-1]
		pending = 0
		if rest = strings.TrimSpace(rest); rest != "" {
			cur.lines = append(cur.lines, rest)
		}
	}
	return blocks, nil
}
