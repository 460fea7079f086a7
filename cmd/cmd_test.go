// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"p4go/cli/internal/bridge"
	"p4go/cli/internal/bridge/model"
	"p4go/cli/internal/config"
	"p4go/cli/internal/errors"
	"p4go/cli/internal/results"
	"p4go/cli/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOutput() []model.Output {
	rec := model.NewRecord()
	rec.SetText("depotFile", "//depot/a.c")
	rec.Set("otherOpen", model.List("bob@ws", "alice@ws2"))
	return []model.Output{{Record: rec}, {Line: "done"}}
}

func TestPrintOutputsJSON(t *testing.T) {
	tests := []struct {
		name string
		out  []model.Output
		want string
	}{
		{name: "empty", out: nil, want: `[]`},
		{
			name: "records and lines",
			out:  sampleOutput(),
			want: `[{"depotFile":"//depot/a.c","otherOpen":["bob@ws","alice@ws2"]},"done"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, printOutputs(&buf, tt.out, true))
			assert.JSONEq(t, tt.want, buf.String())
		})
	}
}

func TestStreamPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &streamPrinter{w: &buf}

	a, err := p.OutputStat(sampleOutput()[0].Record)
	require.NoError(t, err)
	assert.Equal(t, results.Handled, a)

	a, err = p.OutputInfo(1, "child")
	require.NoError(t, err)
	assert.Equal(t, results.Handled, a)

	a, err = p.OutputMessage(model.Message{Severity: model.SeverityFailed, Text: "bad"})
	require.NoError(t, err)
	assert.Equal(t, results.Report, a)

	assert.Equal(t, "depotFile: //depot/a.c\notherOpen: [bob@ws, alice@ws2]\n\n... child\n", buf.String())
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "done", lastLine(sampleOutput()))
	assert.Equal(t, "", lastLine([]model.Output{{Record: model.NewRecord()}}))
	assert.Equal(t, "", lastLine(nil))
}

func TestReadSources(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "form.txt")
	require.NoError(t, os.WriteFile(p, []byte("Client:\tws\n"), 0o600))

	b, err := readSpecSource(strings.NewReader("stdin"), []string{"client", p})
	require.NoError(t, err)
	assert.Equal(t, "Client:\tws\n", string(b))

	b, err = readSpecSource(strings.NewReader("stdin"), []string{"client"})
	require.NoError(t, err)
	assert.Equal(t, "stdin", string(b))

	s, err := readInput(strings.NewReader("from stdin"), "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", s)

	_, err = readInput(nil, filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name      string
		set       func()
		changed   []string
		wantErr   bool
		wantPort  string
		wantLevel int
		wantDebug int
	}{
		{
			name:      "only changed flags are applied",
			set:       func() { flagPort = "ssl:perforce:1666"; flagUser = "ignored" },
			changed:   []string{"port"},
			wantPort:  "ssl:perforce:1666",
			wantLevel: 2,
		},
		{
			name:      "exception level and verbosity",
			set:       func() { exceptionLevel = 1; verbose = 3 },
			changed:   []string{"exception-level"},
			wantPort:  session.DefaultPort,
			wantLevel: 1,
			wantDebug: 2,
		},
		{
			name:    "invalid exception level is returned",
			set:     func() { exceptionLevel = -1 },
			changed: []string{"exception-level"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flagPort, flagUser, exceptionLevel, verbose = "", "", 2, 0
			t.Cleanup(func() { flagPort, flagUser, exceptionLevel, verbose = "", "", 2, 0 })
			tt.set()

			s := session.New(bridge.New(), session.WithEnv(func(string) (string, bool) { return "", false }))
			changed := func(name string) bool {
				for _, c := range tt.changed {
					if c == name {
						return true
					}
				}
				return false
			}

			err := applyFlags(s, changed)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.Attribute, errors.KindOf(err))
				return
			}
			require.NoError(t, err)

			port, _ := s.Attr("port")
			assert.Equal(t, tt.wantPort, port)
			level, _ := s.Attr("exception_level")
			assert.Equal(t, tt.wantLevel, level)
			debug, _ := s.Attr("debug")
			assert.Equal(t, tt.wantDebug, debug)
		})
	}
}

func TestRememberIdentity(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	t.Setenv("P4PORT", "")
	t.Setenv("P4USER", "")

	require.NoError(t, rememberIdentity("ssl:perforce:1666", "alice"))

	cfg, err := config.LoadFrom(filepath.Join(base, "p4go"))
	require.NoError(t, err)
	assert.Equal(t, "ssl:perforce:1666", cfg.Port)
	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, 2, cfg.ExceptionLevel)
}
