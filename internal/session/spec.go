// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"fmt"
	"log/slog"

	"p4go/cli/internal/bridge/model"
	"p4go/cli/internal/errors"
	"p4go/cli/internal/results"
	"p4go/cli/internal/specdef"
)

// ParseRecord converts form text of the given type into a record. A type
// with no known schema is fetched from the server once. Failures are returned
// at exception level 1 and above; at level 0 ParseRecord returns (nil, nil).
func (s *Session) ParseRecord(ctx context.Context, typ, text string) (*model.Record, error) {
	const fn = "P4.parse_spec()"
	if err := s.ensureSchema(ctx, typ); err != nil {
		return nil, s.specFailure(fn, err)
	}
	rec, err := s.specs.ParseText(typ, text)
	if err != nil {
		return nil, s.specFailure(fn, err)
	}
	return rec, nil
}

// FormatRecord converts a record of the given type into form text. Failure
// handling matches ParseRecord; at level 0 a failure yields ("", nil).
func (s *Session) FormatRecord(ctx context.Context, typ string, rec *model.Record) (string, error) {
	const fn = "P4.format_spec()"
	if err := s.ensureSchema(ctx, typ); err != nil {
		return "", s.specFailure(fn, err)
	}
	text, err := s.specs.FormatRecord(typ, rec)
	if err != nil {
		return "", s.specFailure(fn, err)
	}
	return text, nil
}

// SpecFields returns the field names of a form type.
func (s *Session) SpecFields(ctx context.Context, typ string) ([]string, error) {
	if err := s.ensureSchema(ctx, typ); err != nil {
		return nil, s.specFailure("P4.spec_fields()", err)
	}
	return s.specs.Fields(typ)
}

// SpecTypes lists the form types with a known schema.
func (s *Session) SpecTypes() []string { return s.specs.Types() }

func (s *Session) ensureSchema(ctx context.Context, typ string) error {
	if s.specs.Have(typ) {
		return nil
	}
	if !s.connected || s.depth > 0 {
		return errors.New(errors.SpecUnknown, specdef.UnknownTypeMessage(typ))
	}
	_, err := s.specs.FetchAndCache(ctx, typ, s.fetchSpecDef)
	if err != nil {
		s.log.Info("session.specdef.fetch.fail", slog.String("type", typ), slog.String("err", err.Error()))
		if errors.Is(err, errors.SpecUnknown) {
			return err
		}
		return errors.Wrap(errors.SpecUnknown, specdef.UnknownTypeMessage(typ), err)
	}
	return nil
}

// fetchSpecDef runs "<type> -o" in tagged mode and returns the spec
// definition the server attaches to the form.
func (s *Session) fetchSpecDef(ctx context.Context, typ string) (string, error) {
	tagged := s.tagged
	s.tagged = true
	defer func() { s.tagged = tagged }()

	s.lastSpec = ""
	if _, err := s.Run(ctx, typ, "-o"); err != nil {
		return "", err
	}
	return s.lastSpec, nil
}

// specFailure escalates a schema error per the exception level.
func (s *Session) specFailure(fn string, err error) error {
	if s.exceptionLevel == 0 {
		s.log.Debug("session.spec.fail", slog.String("err", err.Error()))
		return nil
	}
	var e *errors.E
	msg := err.Error()
	kind := errors.SpecConversion
	if errors.As(err, &e) {
		kind = e.Kind
		msg = e.Message
		if kind == errors.SpecConversion && e.Err != nil {
			msg += " " + e.Err.Error()
		}
	}
	return s.except(fn, kind, msg, err)
}

// inputLines converts staged input into the lines sent to the server.
// Records are formatted with the schema named after the command.
func (s *Session) inputLines(cmd string, v any) ([]string, error) {
	switch in := v.(type) {
	case *model.Record:
		text, err := s.specs.FormatRecord(cmd, in)
		if err != nil {
			return nil, err
		}
		return results.DefaultInput(text)
	case []*model.Record:
		var lines []string
		for _, r := range in {
			l, err := s.inputLines(cmd, r)
			if err != nil {
				return nil, err
			}
			lines = append(lines, l...)
		}
		return lines, nil
	case []any:
		var lines []string
		for _, item := range in {
			l, err := s.inputLines(cmd, item)
			if err != nil {
				return nil, err
			}
			lines = append(lines, l...)
		}
		return lines, nil
	case string:
		return results.DefaultInput(in)
	case []string:
		return in, nil
	}
	return nil, fmt.Errorf("unsupported input type %T", v)
}
