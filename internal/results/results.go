// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package results accumulates the outcome of one command: output items,
// errors, warnings and informational messages. A Sink is the ClientUser a
// transport streams into; the session resets it before every command and
// inspects it afterwards to decide whether to return output or escalate.
//
// A Sink optionally forwards callbacks to a streaming Handler, a Progress
// collaborator and a Resolver, and reports through IsAlive whether the handler
// asked to stop.
package results

import (
	"fmt"
	"strings"

	"p4go/cli/internal/bridge/model"
)

// Action is a streaming handler's verdict on one callback.
type Action int

const (
	// Report keeps the item in the accumulated results.
	Report Action = iota
	// Handled drops the item from the accumulated results.
	Handled
	// Cancel drops the item and asks the transport to stop the command.
	Cancel
)

// Handler consumes output as it streams in.
type Handler interface {
	OutputStat(r *model.Record) (Action, error)
	OutputInfo(level int, line string) (Action, error)
	OutputMessage(m model.Message) (Action, error)
}

// Progress receives progress notifications for long-running commands.
type Progress interface {
	Init(kind int)
	Description(desc string, units int)
	Total(total int64)
	Update(position int64)
	Done(fail bool)
}

// Resolver settles the files of a resolve command. Resolve returns one of the
// model.Resolve* results for m.
type Resolver interface {
	Resolve(m model.MergeData) (string, error)
}

// InputFormatter turns a staged input value into the lines sent to the server.
type InputFormatter func(v any) ([]string, error)

// SpecDefKey is the tagged field that carries a form's spec definition.
const SpecDefKey = "specdef"

// Sink accumulates one command's results.
// It is not safe for concurrent use; callbacks arrive on the Run goroutine.
type Sink struct {
	output   []model.Output
	errors   []model.Message
	warnings []model.Message
	infos    []model.Message
	messages []model.Message
	track    []string
	fatal    bool

	handler  Handler
	progress Progress
	resolver Resolver
	alive    bool
	cbErr    error

	input     any
	hasInput  bool
	formatter InputFormatter

	trackOn   bool
	onSpecDef func(def string)
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{alive: true}
}

// Reset clears all accumulated state before a new command. Staged input and
// the handler, progress and resolver collaborators survive a reset.
func (s *Sink) Reset() {
	s.output = nil
	s.errors = nil
	s.warnings = nil
	s.infos = nil
	s.messages = nil
	s.track = nil
	s.fatal = false
	s.alive = true
	s.cbErr = nil
	s.onSpecDef = nil
}

// AddOutput appends one output item.
func (s *Sink) AddOutput(o model.Output) { s.output = append(s.output, o) }

// AddError records an error message; fatal marks the connection unusable.
func (s *Sink) AddError(msg string, fatal bool) {
	sev := model.SeverityFailed
	if fatal {
		sev = model.SeverityFatal
	}
	s.addMessage(model.Message{Severity: sev, Text: msg})
}

// AddWarning records a warning message.
func (s *Sink) AddWarning(msg string) {
	s.addMessage(model.Message{Severity: model.SeverityWarning, Text: msg})
}

// AddInfo records an informational message.
func (s *Sink) AddInfo(msg string) {
	s.addMessage(model.Message{Severity: model.SeverityInfo, Text: msg})
}

func (s *Sink) addMessage(m model.Message) {
	m.Text = strings.TrimRight(m.Text, "\n")
	s.messages = append(s.messages, m)
	switch {
	case m.Severity >= model.SeverityFailed:
		s.errors = append(s.errors, m)
		if m.Severity == model.SeverityFatal {
			s.fatal = true
		}
	case m.Severity == model.SeverityWarning:
		s.warnings = append(s.warnings, m)
	default:
		s.infos = append(s.infos, m)
		s.output = append(s.output, model.Output{Line: m.Text})
	}
}

// ErrorCount returns the number of errors.
func (s *Sink) ErrorCount() int { return len(s.errors) }

// WarningCount returns the number of warnings.
func (s *Sink) WarningCount() int { return len(s.warnings) }

// IsFatal reports whether any error was fatal.
func (s *Sink) IsFatal() bool { return s.fatal }

// Errors returns the error texts in receipt order.
func (s *Sink) Errors() []string { return texts(s.errors) }

// Warnings returns the warning texts in receipt order.
func (s *Sink) Warnings() []string { return texts(s.warnings) }

// Infos returns the informational message texts in receipt order.
func (s *Sink) Infos() []string { return texts(s.infos) }

// Messages returns every message with its severity.
func (s *Sink) Messages() []model.Message {
	return append([]model.Message(nil), s.messages...)
}

// TrackOutput returns the performance tracking lines of the last command.
func (s *Sink) TrackOutput() []string { return append([]string(nil), s.track...) }

// GetOutput returns the accumulated output in receipt order.
func (s *Sink) GetOutput() []model.Output {
	return append([]model.Output(nil), s.output...)
}

// FormatErrors renders the errors as one block, one message per line.
func (s *Sink) FormatErrors() string { return format("[Error]: ", s.errors) }

// FormatWarnings renders the warnings as one block, one message per line.
func (s *Sink) FormatWarnings() string { return format("[Warning]: ", s.warnings) }

func format(label string, msgs []model.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(label)
		b.WriteString(m.Text)
	}
	return b.String()
}

func texts(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

// SetHandler installs (or clears, with nil) the streaming handler.
func (s *Sink) SetHandler(h Handler) { s.handler = h }

// Handler returns the streaming handler, or nil.
func (s *Sink) Handler() Handler { return s.handler }

// SetProgress installs (or clears, with nil) the progress collaborator.
func (s *Sink) SetProgress(p Progress) { s.progress = p }

// ProgressReporter returns the progress collaborator, or nil.
func (s *Sink) ProgressReporter() Progress { return s.progress }

// SetResolver installs (or clears, with nil) the resolver.
func (s *Sink) SetResolver(r Resolver) { s.resolver = r }

// Resolver returns the resolver, or nil.
func (s *Sink) Resolver() Resolver { return s.resolver }

// SetTrack enables collection of performance tracking lines.
func (s *Sink) SetTrack(on bool) { s.trackOn = on }

// SetInput stages data for the next command that reads input.
func (s *Sink) SetInput(v any) {
	s.input = v
	s.hasInput = v != nil
}

// PendingInput returns the staged input, or nil.
func (s *Sink) PendingInput() any { return s.input }

// SetInputFormatter sets the conversion applied to staged input.
func (s *Sink) SetInputFormatter(f InputFormatter) { s.formatter = f }

// OnSpecDef registers fn to receive a spec definition seen in tagged
// output during the current command. Reset clears it.
func (s *Sink) OnSpecDef(fn func(def string)) { s.onSpecDef = fn }

// IsAlive reports false once the handler cancelled or a callback failed.
func (s *Sink) IsAlive() bool { return s.alive && s.cbErr == nil }

// Err returns the first error raised by a handler or resolver callback.
func (s *Sink) Err() error { return s.cbErr }

func (s *Sink) dispatch(a Action, err error) bool {
	if err != nil {
		if s.cbErr == nil {
			s.cbErr = err
		}
		return false
	}
	switch a {
	case Handled:
		return false
	case Cancel:
		s.alive = false
		return false
	}
	return true
}

// OutputStat implements model.ClientUser.
func (s *Sink) OutputStat(r *model.Record) {
	if def, ok := r.Get(SpecDefKey); ok && !def.IsList() {
		if s.onSpecDef != nil {
			s.onSpecDef(def.Text)
		}
		r.Delete(SpecDefKey)
	}
	if s.handler != nil && !s.dispatch(s.handler.OutputStat(r)) {
		return
	}
	s.AddOutput(model.Output{Record: r})
}

// OutputInfo implements model.ClientUser.
func (s *Sink) OutputInfo(level int, line string) {
	if s.handler != nil && !s.dispatch(s.handler.OutputInfo(level, line)) {
		return
	}
	s.AddOutput(model.Output{Line: line})
}

// OutputText implements model.ClientUser.
func (s *Sink) OutputText(text string) {
	if s.handler != nil && !s.dispatch(s.handler.OutputInfo(0, text)) {
		return
	}
	s.AddOutput(model.Output{Line: text})
}

// Message implements model.ClientUser.
func (s *Sink) Message(m model.Message) {
	if s.handler != nil && !s.dispatch(s.handler.OutputMessage(m)) {
		return
	}
	s.addMessage(m)
}

// Track implements model.ClientUser.
func (s *Sink) Track(line string) {
	if s.trackOn {
		s.track = append(s.track, line)
	}
}

// Progress implements model.ClientUser.
func (s *Sink) Progress(ev model.ProgressEvent) {
	p := s.progress
	if p == nil {
		return
	}
	switch ev.Phase {
	case model.ProgressInit:
		p.Init(ev.Type)
	case model.ProgressDescription:
		p.Description(ev.Description, ev.Units)
	case model.ProgressTotal:
		p.Total(ev.Value)
	case model.ProgressUpdate:
		p.Update(ev.Value)
	case model.ProgressDone:
		p.Done(ev.Fail)
	}
}

// Input implements model.ClientUser. Staged input is consumed by the first
// command that asks for it.
func (s *Sink) Input() ([]string, error) {
	if !s.hasInput {
		return nil, nil
	}
	v := s.input
	s.input, s.hasInput = nil, false
	if s.formatter != nil {
		return s.formatter(v)
	}
	return DefaultInput(v)
}

// Resolve implements model.ClientUser. Without a resolver every file is
// skipped. A resolver error, or a result that is not a resolve result, is
// kept as the callback error and answers quit.
func (s *Sink) Resolve(m model.MergeData) (string, error) {
	if s.resolver == nil {
		return model.ResolveSkip, nil
	}
	result, err := s.resolver.Resolve(m)
	if err == nil && !model.ValidResolve(result) {
		err = fmt.Errorf("invalid resolve result %q for %s", result, m.YourName)
	}
	if err != nil {
		if s.cbErr == nil {
			s.cbErr = err
		}
		return model.ResolveQuit, nil
	}
	return result, nil
}

// DefaultInput converts strings and string slices into input lines.
func DefaultInput(v any) ([]string, error) {
	switch in := v.(type) {
	case string:
		return strings.Split(strings.TrimSuffix(in, "\n"), "\n"), nil
	case []string:
		return in, nil
	}
	return nil, fmt.Errorf("unsupported input type %T", v)
}
