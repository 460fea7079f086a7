// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. Errors raised after a server command also carry the
// server's error and warning messages so callers can inspect them without parsing text.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to handle different types of failures appropriately.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Attribute indicates an unknown, read-only or mistyped attribute.
	Attribute Kind = "attribute"
	// ConnectionState indicates an operation that is not allowed in the current
	// connection state, such as changing the port while connected.
	ConnectionState Kind = "connection_state"
	// NotConnected indicates a command or query issued without a connection.
	NotConnected Kind = "not_connected"
	// ConnectFailed indicates the transport could not be initialised.
	ConnectFailed Kind = "connect_failed"
	// CommandFailed indicates a command finished with server errors.
	CommandFailed Kind = "command_failed"
	// CommandWarned indicates a command finished with server warnings.
	CommandWarned Kind = "command_warned"
	// SpecUnknown indicates a form type with no known spec definition.
	SpecUnknown Kind = "spec_unknown"
	// SpecConversion indicates form text or a record that could not be converted.
	SpecConversion Kind = "spec_conversion"
	// Charset indicates an unknown or unusable character set.
	Charset Kind = "charset"
	// Environment indicates a bad environment variable operation.
	Environment Kind = "environment"
	// Callback indicates a failure raised by a streaming handler.
	Callback Kind = "callback"
	// Config indicates an unreadable or invalid configuration file.
	Config Kind = "config"
)

// E wraps an error with kind and human-friendly message.
// Errors and Warnings hold the server messages of the command that failed, if any.
type E struct {
	Kind     Kind
	Message  string
	Err      error
	Errors   []string
	Warnings []string
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or "".
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As is errors.As from the standard library.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// Compose builds the message of an escalated error: "[fn] msg", followed by the
// formatted errors and, at exception level 2 and above, the formatted warnings.
// A blank line terminates the message whenever any block was appended.
func Compose(fn, msg, errs, warns string, level int) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(fn)
	b.WriteString("] ")
	b.WriteString(msg)
	appended := false
	if errs != "" {
		b.WriteString("\n")
		b.WriteString(errs)
		appended = true
	}
	if level > 1 && warns != "" {
		b.WriteString("\n")
		b.WriteString(warns)
		appended = true
	}
	if appended {
		b.WriteString("\n\n")
	}
	return b.String()
}

// WithCommand appends the command string to msg the way command failures
// are reported.
func WithCommand(msg, cmd string) string {
	return msg + "( " + cmd + " )"
}
