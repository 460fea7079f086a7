// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model defines the transport-agnostic data exchanged between the
// session engine and a server transport. It provides field-keyed records that
// keep their insertion order, server messages with a severity, and the output
// items a command produces.
//
// The types in this package carry no protocol details so that any bridge
// implementation (gRPC, in-process fakes) can produce and consume them.
package model

import (
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Value is a record field value: either a single text value or an ordered
// list of text values for multi-valued fields.
type Value struct {
	Text  string
	Items []string
	list  bool
}

// Text returns a single-valued field value.
func Text(s string) Value { return Value{Text: s} }

// List returns a multi-valued field value.
func List(items ...string) Value {
	return Value{Items: append([]string(nil), items...), list: true}
}

// IsList reports whether v is multi-valued.
func (v Value) IsList() bool { return v.list }

// Lines returns the value as a list of lines.
func (v Value) Lines() []string {
	if v.list {
		return v.Items
	}
	return []string{v.Text}
}

// Equal reports whether both values have the same shape and content.
func (v Value) Equal(o Value) bool {
	if v.list != o.list {
		return false
	}
	if !v.list {
		return v.Text == o.Text
	}
	if len(v.Items) != len(o.Items) {
		return false
	}
	for i := range v.Items {
		if v.Items[i] != o.Items[i] {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	if v.list {
		return "[" + strings.Join(v.Items, ", ") + "]"
	}
	return v.Text
}

// MarshalJSON encodes a list as a JSON array and a scalar as a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.list {
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON accepts a JSON string or an array of strings.
func (v *Value) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = Text(s)
		return nil
	}
	var items []string
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("record value must be a string or a list of strings: %w", err)
	}
	*v = List(items...)
	return nil
}

// Record is a field-name to value mapping that preserves insertion order.
// The zero value is not usable; create records with NewRecord.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{fields: orderedmap.New[string, Value]()}
}

// Set stores a value, keeping the original position if the field exists.
func (r *Record) Set(name string, v Value) {
	r.fields.Set(name, v)
}

// SetText is shorthand for Set(name, Text(s)).
func (r *Record) SetText(name, s string) { r.Set(name, Text(s)) }

// Append adds one line to a multi-valued field, creating it if needed.
func (r *Record) Append(name, line string) {
	cur, ok := r.fields.Get(name)
	if !ok || !cur.list {
		cur = List()
	}
	cur.Items = append(cur.Items, line)
	r.fields.Set(name, cur)
}

// Get returns the value for name.
func (r *Record) Get(name string) (Value, bool) {
	return r.fields.Get(name)
}

// GetText returns the text of a single-valued field, or "".
func (r *Record) GetText(name string) string {
	v, ok := r.fields.Get(name)
	if !ok || v.list {
		return ""
	}
	return v.Text
}

// Delete removes a field.
func (r *Record) Delete(name string) {
	r.fields.Delete(name)
}

// Len returns the number of fields.
func (r *Record) Len() int { return r.fields.Len() }

// Keys returns field names in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each calls fn for every field in insertion order.
func (r *Record) Each(fn func(name string, v Value)) {
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Equal reports whether both records hold the same fields, values and order.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Len() != o.Len() {
		return false
	}
	a, b := r.fields.Oldest(), o.fields.Oldest()
	for a != nil && b != nil {
		if a.Key != b.Key || !a.Value.Equal(b.Value) {
			return false
		}
		a, b = a.Next(), b.Next()
	}
	return true
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	return r.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the input.
func (r *Record) UnmarshalJSON(b []byte) error {
	m := orderedmap.New[string, Value]()
	if err := m.UnmarshalJSON(b); err != nil {
		return err
	}
	r.fields = m
	return nil
}

// Severity classifies a server message.
type Severity int

const (
	SeverityEmpty Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityFailed
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityEmpty:
		return "empty"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityFailed:
		return "failed"
	case SeverityFatal:
		return "fatal"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Message is one server message.
type Message struct {
	Severity Severity
	Generic  int
	Text     string
}

// IsError reports whether the message counts as a command error.
func (m Message) IsError() bool { return m.Severity >= SeverityFailed }

// Output is one output item of a command: a bare text line or a tagged record.
type Output struct {
	Line   string
	Record *Record
}

// IsRecord reports whether the item is a tagged record.
func (o Output) IsRecord() bool { return o.Record != nil }

// MarshalJSON encodes a record item as an object and a line as a string.
func (o Output) MarshalJSON() ([]byte, error) {
	if o.Record != nil {
		return o.Record.MarshalJSON()
	}
	return json.Marshal(o.Line)
}

// Identity is the client identity sent with every command.
type Identity struct {
	User     string
	Client   string
	Host     string
	Password string
	Charset  string
	Language string
	Cwd      string
	Prog     string
	Version  string
}

// ProgressPhase identifies a progress notification.
type ProgressPhase string

const (
	ProgressInit        ProgressPhase = "init"
	ProgressDescription ProgressPhase = "description"
	ProgressTotal       ProgressPhase = "total"
	ProgressUpdate      ProgressPhase = "update"
	ProgressDone        ProgressPhase = "done"
)

// ProgressEvent is a progress notification streamed by the server.
// Only the fields relevant to Phase are set.
type ProgressEvent struct {
	Phase       ProgressPhase
	Type        int
	Description string
	Units       int
	Value       int64
	Fail        bool
}

// MergeData describes one file a resolve command asks the client to settle.
// Content resolves fill the name and path fields; action resolves (filetype,
// branch, delete and move resolves) fill the action fields instead.
type MergeData struct {
	YourName   string
	TheirName  string
	BaseName   string
	YourPath   string
	TheirPath  string
	BasePath   string
	ResultPath string
	MergeHint  string

	MergeAction string
	YoursAction string
	TheirAction string
	Type        string
	Info        string
}

// IsAction reports whether m describes an action resolve.
func (m MergeData) IsAction() bool { return m.MergeAction != "" || m.Type != "" }

// Resolve results a client may answer with.
const (
	ResolveAcceptYours  = "ay"
	ResolveAcceptTheirs = "at"
	ResolveAcceptMerged = "am"
	ResolveAcceptEdit   = "ae"
	ResolveSkip         = "s"
	ResolveQuit         = "q"
)

// ValidResolve reports whether result is one of the resolve results.
func ValidResolve(result string) bool {
	switch result {
	case ResolveAcceptYours, ResolveAcceptTheirs, ResolveAcceptMerged, ResolveAcceptEdit, ResolveSkip, ResolveQuit:
		return true
	}
	return false
}

// ClientUser receives the callbacks streamed by a transport while a command
// runs. All callbacks happen on the goroutine that called Run.
type ClientUser interface {
	OutputStat(r *Record)
	OutputInfo(level int, line string)
	OutputText(text string)
	Message(m Message)
	Track(line string)
	Progress(ev ProgressEvent)
	// Input returns the data a command reads in place of standard input.
	Input() ([]string, error)
	// Resolve answers a resolve prompt with one of the Resolve results.
	Resolve(m MergeData) (string, error)
}

// KeepAlive is polled by a transport between frames.
type KeepAlive interface {
	IsAlive() bool
}
