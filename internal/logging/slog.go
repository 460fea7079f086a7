// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"context"
	"io"
	"log/slog"
)

// LevelHandler filters records below Level before passing them to Handler.
// Level is usually a *slog.LevelVar so the threshold can change at runtime.
type LevelHandler struct {
	Handler slog.Handler
	Level   slog.Leveler
}

func (h *LevelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.Level.Level() && h.Handler.Enabled(ctx, l)
}

func (h *LevelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.Handler.Handle(ctx, r)
}

func (h *LevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelHandler{Handler: h.Handler.WithAttrs(attrs), Level: h.Level}
}

func (h *LevelHandler) WithGroup(name string) slog.Handler {
	return &LevelHandler{Handler: h.Handler.WithGroup(name), Level: h.Level}
}

// discardHandler drops all records; equivalent to slog.DiscardHandler
// (Go 1.24+), kept local so the module builds with older toolchains.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New returns a text logger writing to w. verbose 0 logs nothing, 1 logs
// warnings, 2 info and 3 or more debug records. Secret values in string
// attributes are masked.
func New(w io.Writer, verbose int) *slog.Logger {
	if verbose <= 0 {
		return slog.New(discardHandler{})
	}
	level := slog.LevelWarn
	switch {
	case verbose == 2:
		level = slog.LevelInfo
	case verbose >= 3:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindString {
				return slog.String(a.Key, Mask(a.Value.String()))
			}
			return a
		},
	}))
}
