// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"p4go/cli/internal/attrs"
	"p4go/cli/internal/bridge/model"
	"p4go/cli/internal/errors"
	"p4go/cli/internal/results"
)

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// registry is the attribute table of every session.
var registry *attrs.Registry[*Session]

func init() {
	registry = attrs.NewRegistry(
		attrs.IntAttr("tagged",
			func(s *Session) int { return boolInt(s.tagged) },
			func(s *Session, v int) error { s.tagged = v != 0; return nil }),
		attrs.IntAttr("api_level",
			func(s *Session) int { return s.apiLevel },
			func(s *Session, v int) error {
				s.apiLevel = v
				s.transport.SetProtocol("api", strconv.Itoa(v))
				return nil
			}),
		attrs.IntAttr("maxresults",
			func(s *Session) int { return s.maxResults },
			func(s *Session, v int) error { s.maxResults = v; return nil }),
		attrs.IntAttr("maxscanrows",
			func(s *Session) int { return s.maxScanRows },
			func(s *Session, v int) error { s.maxScanRows = v; return nil }),
		attrs.IntAttr("maxlocktime",
			func(s *Session) int { return s.maxLockTime },
			func(s *Session, v int) error { s.maxLockTime = v; return nil }),
		attrs.IntAttr("exception_level",
			func(s *Session) int { return s.exceptionLevel },
			func(s *Session, v int) error {
				if v < 0 {
					return errors.New(errors.Attribute, fmt.Sprintf("exception level must not be negative, got %d", v))
				}
				s.exceptionLevel = v
				return nil
			}),
		attrs.IntAttr("debug",
			func(s *Session) int { return s.debug },
			func(s *Session, v int) error { s.setDebug(v); return nil }),
		attrs.IntAttr("track",
			func(s *Session) int { return boolInt(s.track) },
			func(s *Session, v int) error {
				if s.IsConnected() {
					return errors.New(errors.ConnectionState, "Can't change tracking once you've connected.")
				}
				s.track = v != 0
				s.sink.SetTrack(s.track)
				return nil
			}),
		attrs.IntAttr("streams",
			func(s *Session) int { return boolInt(s.streams) },
			func(s *Session, v int) error { s.streams = v != 0; return nil }),

		attrs.StringAttr("charset",
			func(s *Session) string { return s.charset },
			func(s *Session, v string) error { return s.setCharset(v) }),
		attrs.StringAttr("client",
			func(s *Session) string { return s.client },
			func(s *Session, v string) error { s.client = v; return nil }),
		attrs.StringAttr("p4config_file",
			func(s *Session) string { return s.Env("P4CONFIG") }, nil),
		attrs.StringAttr("cwd",
			func(s *Session) string { return s.cwd },
			func(s *Session, v string) error { s.cwd = v; return nil }),
		attrs.StringAttr("host",
			func(s *Session) string { return s.host },
			func(s *Session, v string) error { s.host = v; return nil }),
		attrs.StringAttr("language",
			func(s *Session) string { return s.language },
			func(s *Session, v string) error { s.language = v; return nil }),
		attrs.StringAttr("port",
			func(s *Session) string { return s.port },
			func(s *Session, v string) error {
				if s.IsConnected() {
					return errors.New(errors.ConnectionState, "Can't change port once you've connected.")
				}
				s.port = v
				return nil
			}),
		attrs.StringAttr("prog",
			func(s *Session) string { return s.prog },
			func(s *Session, v string) error { s.prog = v; return nil }),
		attrs.StringAttr("ticket_file",
			func(s *Session) string { return s.ticketFile },
			func(s *Session, v string) error { s.ticketFile = v; return nil }),
		attrs.StringAttr("password",
			func(s *Session) string { return s.password },
			func(s *Session, v string) error { s.password = v; return nil }),
		attrs.StringAttr("user",
			func(s *Session) string { return s.user },
			func(s *Session, v string) error { s.user = v; return nil }),
		attrs.StringAttr("version",
			func(s *Session) string { return s.version },
			func(s *Session, v string) error { s.version = v; return nil }),
		attrs.StringAttr("PATCHLEVEL",
			func(*Session) string { return PatchLevel }, nil),
		attrs.StringAttr("OS",
			func(*Session) string { return osName() }, nil),
		attrs.StringAttr("encoding",
			func(s *Session) string { return s.encoding },
			func(s *Session, v string) error { s.encoding = v; return nil }),

		attrs.ObjectAttr("input",
			func(s *Session) (any, error) { return s.sink.PendingInput(), nil },
			func(s *Session, v any) error { return s.setInput(v) }),
		attrs.ObjectAttr("handler",
			func(s *Session) (any, error) { return s.sink.Handler(), nil },
			func(s *Session, v any) error { return s.setHandler(v) }),
		attrs.ObjectAttr("progress",
			func(s *Session) (any, error) { return s.sink.ProgressReporter(), nil },
			func(s *Session, v any) error { return s.setProgress(v) }),
		attrs.ObjectAttr("resolver",
			func(s *Session) (any, error) { return s.sink.Resolver(), nil },
			func(s *Session, v any) error { return s.setResolver(v) }),
		attrs.ObjectAttr("errors",
			func(s *Session) (any, error) { return s.sink.Errors(), nil }, nil),
		attrs.ObjectAttr("warnings",
			func(s *Session) (any, error) { return s.sink.Warnings(), nil }, nil),
		attrs.ObjectAttr("messages",
			func(s *Session) (any, error) { return s.sink.Messages(), nil }, nil),
		attrs.ObjectAttr("track_output",
			func(s *Session) (any, error) { return s.sink.TrackOutput(), nil }, nil),
		attrs.ObjectAttr("members",
			func(*Session) (any, error) { return Members(), nil }, nil),
		attrs.ObjectAttr("server_level",
			func(s *Session) (any, error) { return s.ServerLevel(context.Background()) }, nil),
		attrs.ObjectAttr("server_case_insensitive",
			func(s *Session) (any, error) { return s.ServerCaseInsensitive(context.Background()) }, nil),
		attrs.ObjectAttr("server_unicode",
			func(s *Session) (any, error) { return s.ServerUnicode(context.Background()) }, nil),
	)
}

// Members returns every attribute name in table order.
func Members() []string { return registry.Names() }

// Describe returns the kind and writability of an attribute.
func Describe(name string) (kind attrs.Kind, readOnly bool, ok bool) {
	d, ok := registry.Resolve(name)
	if !ok {
		return 0, false, false
	}
	return d.Kind, d.ReadOnly(), true
}

// Attr returns the value of the named attribute.
func (s *Session) Attr(name string) (any, error) {
	return registry.Get(s, name)
}

// SetAttr assigns an attribute by name. Integer attributes take integer
// values, string attributes take strings, and object attributes take any
// value they can validate.
func (s *Session) SetAttr(name string, v any) error {
	return registry.Set(s, name, v)
}

// SetAttrText assigns an attribute from its text form.
func (s *Session) SetAttrText(name, text string) error {
	return registry.SetText(s, name, text)
}

// Init applies keyword settings the way a new session is configured: every
// name must be an integer or string attribute.
func (s *Session) Init(settings map[string]any) error {
	for name, v := range settings {
		switch v.(type) {
		case string:
			if _, ok := registry.Lookup(attrs.String, name); !ok {
				return errors.New(errors.Attribute, "No string keyword with name "+name)
			}
		default:
			if _, ok := registry.Lookup(attrs.Int, name); !ok {
				return errors.New(errors.Attribute, "No integer keyword with name "+name)
			}
		}
		if err := s.SetAttr(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) setInput(v any) error {
	switch in := v.(type) {
	case nil, string, []string, *model.Record, []*model.Record:
	case []any:
		for _, item := range in {
			switch item.(type) {
			case string, *model.Record:
			default:
				return errors.New(errors.Attribute, fmt.Sprintf("input items must be strings or records, got %T", item))
			}
		}
	default:
		return errors.New(errors.Attribute, fmt.Sprintf("input must be a string, a record or a list of them, got %T", v))
	}
	s.sink.SetInput(v)
	return nil
}

func (s *Session) setHandler(v any) error {
	if v == nil {
		s.sink.SetHandler(nil)
		if s.connected {
			s.transport.SetBreak(nil)
		}
		return nil
	}
	h, ok := v.(results.Handler)
	if !ok {
		return errors.New(errors.Attribute, fmt.Sprintf("handler must implement OutputStat, OutputInfo and OutputMessage, got %T", v))
	}
	s.sink.SetHandler(h)
	if s.connected {
		s.transport.SetBreak(s.sink)
	}
	return nil
}

func (s *Session) setProgress(v any) error {
	if v == nil {
		s.sink.SetProgress(nil)
		return nil
	}
	p, ok := v.(results.Progress)
	if !ok {
		return errors.New(errors.Attribute, fmt.Sprintf("progress must implement Init, Description, Total, Update and Done, got %T", v))
	}
	s.sink.SetProgress(p)
	return nil
}

func (s *Session) setResolver(v any) error {
	if v == nil {
		s.sink.SetResolver(nil)
		return nil
	}
	r, ok := v.(results.Resolver)
	if !ok {
		return errors.New(errors.Attribute, fmt.Sprintf("resolver must implement Resolve, got %T", v))
	}
	s.log.Debug("session.resolver.set", slog.String("type", fmt.Sprintf("%T", v)))
	s.sink.SetResolver(r)
	return nil
}
