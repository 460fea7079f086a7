// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"p4go/cli/internal/bridge/model"
	"p4go/cli/internal/errors"
	"p4go/cli/internal/logging"
)

// Var is one protocol variable sent with a command.
type Var struct {
	Name  string
	Value string
}

// VarSettings are the session settings that decide which protocol variables
// accompany a command.
type VarSettings struct {
	Prog        string
	Version     string
	Tagged      bool
	Streams     bool
	APILevel    int
	MaxResults  int
	MaxScanRows int
	MaxLockTime int
	Progress    bool
}

// streamsAPILevel is the first protocol level that understands enableStreams.
const streamsAPILevel = 70

// BuildProtocolVars returns the variables to inject before a command, in the
// order they are sent. Resource limits are sent only when set.
func BuildProtocolVars(v VarSettings) []Var {
	vars := []Var{{Name: "prog", Value: v.Prog}}
	if v.Version != "" {
		vars = append(vars, Var{Name: "version", Value: v.Version})
	}
	if v.Tagged {
		vars = append(vars, Var{Name: "tag"})
	}
	if v.Streams && v.APILevel >= streamsAPILevel {
		vars = append(vars, Var{Name: "enableStreams"})
	}
	if v.MaxResults != 0 {
		vars = append(vars, Var{Name: "maxResults", Value: strconv.Itoa(v.MaxResults)})
	}
	if v.MaxScanRows != 0 {
		vars = append(vars, Var{Name: "maxScanRows", Value: strconv.Itoa(v.MaxScanRows)})
	}
	if v.MaxLockTime != 0 {
		vars = append(vars, Var{Name: "maxLockTime", Value: strconv.Itoa(v.MaxLockTime)})
	}
	if v.Progress {
		vars = append(vars, Var{Name: "progress", Value: "1"})
	}
	return vars
}

func (s *Session) varSettings() VarSettings {
	return VarSettings{
		Prog:        s.prog,
		Version:     s.version,
		Tagged:      s.tagged,
		Streams:     s.streams,
		APILevel:    s.apiLevel,
		MaxResults:  s.maxResults,
		MaxScanRows: s.maxScanRows,
		MaxLockTime: s.maxLockTime,
		Progress:    s.sink.ProgressReporter() != nil,
	}
}

// Run executes one command and returns its output.
//
// A nested call from inside a running command logs a warning and returns
// (nil, nil) without running anything. When not connected, Run fails at
// exception level 1 and above and returns (nil, nil) at level 0. Server
// errors are returned from level 1, server warnings from level 2; a fatal
// server error also disconnects the session. Failures of the transport or of
// input formatting follow the same rule as server errors. Errors raised by a
// handler or resolver are returned at every level.
func (s *Session) Run(ctx context.Context, cmd string, args ...string) ([]model.Output, error) {
	cmdString := commandString(cmd, args)
	s.log.Debug("session.run", slog.String("cmd", logging.Mask(cmdString)))

	if s.depth > 0 {
		s.log.Warn("session.run.nested", slog.String("reason", "P4.run() - Can't execute nested Perforce commands."))
		return nil, nil
	}

	s.sink.Reset()
	s.sink.OnSpecDef(func(def string) {
		s.lastSpec = def
		if err := s.specs.Put(cmd, def); err != nil {
			s.log.Debug("session.specdef.ignored", slog.String("type", cmd), slog.String("err", err.Error()))
		}
	})
	s.sink.SetInputFormatter(func(v any) ([]string, error) { return s.inputLines(cmd, v) })

	if !s.IsConnected() {
		if s.exceptionLevel > 0 {
			return nil, s.except("P4.run()", errors.NotConnected, "not connected.", nil)
		}
		return nil, nil
	}

	runErr := s.runCmd(ctx, cmd, args)

	if s.sink.Handler() != nil && s.transport.Dropped() && !s.sink.IsAlive() {
		s.log.Info("session.reconnect", slog.String("cmd", logging.Mask(cmdString)))
		cbErr := s.sink.Err()
		s.disconnect()
		if _, err := s.connectOrReconnect(ctx); err != nil {
			return nil, err
		}
		if cbErr != nil {
			return nil, errors.Wrap(errors.Callback, "callback failed during "+cmdString, cbErr)
		}
	}
	if err := s.sink.Err(); err != nil {
		return nil, errors.Wrap(errors.Callback, "callback failed during "+cmdString, err)
	}
	if runErr != nil {
		if s.exceptionLevel == 0 {
			s.log.Warn("session.run.failed", slog.String("cmd", logging.Mask(cmdString)), slog.String("err", runErr.Error()))
			return nil, nil
		}
		var e *errors.E
		if errors.As(runErr, &e) {
			return nil, runErr
		}
		return nil, errors.Wrap(errors.CommandFailed, "command "+cmdString+" failed", runErr)
	}

	if s.sink.ErrorCount() > 0 && s.exceptionLevel > 0 {
		err := s.except("P4#run", errors.CommandFailed, errors.WithCommand("Errors during command execution", cmdString), nil)
		if s.sink.IsFatal() {
			s.disconnect()
		}
		return nil, err
	}
	if s.sink.WarningCount() > 0 && s.exceptionLevel > 1 {
		return nil, s.except("P4#run", errors.CommandWarned, errors.WithCommand("Warnings during command execution", cmdString), nil)
	}
	for _, w := range s.sink.Warnings() {
		s.log.Debug("session.run.warning", slog.String("msg", w))
	}
	return s.sink.GetOutput(), nil
}

// runCmd injects protocol variables, delegates to the transport and latches
// the server protocol values after the first command on a connection.
func (s *Session) runCmd(ctx context.Context, cmd string, args []string) error {
	s.depth++
	defer func() { s.depth-- }()

	s.transport.SetIdentity(s.identity())
	for _, v := range BuildProtocolVars(s.varSettings()) {
		s.log.Debug("session.var", slog.String("name", v.Name), slog.String("value", v.Value))
		s.transport.SetVar(v.Name, v.Value)
	}

	err := s.transport.Run(ctx, cmd, args, s.sink)

	if !s.cmdRun {
		if v, ok := s.transport.GetProtocol("server2"); ok {
			s.serverLevel = atoi(v)
		}
		if _, ok := s.transport.GetProtocol("nocase"); ok {
			s.caseFold = true
		}
		if v, ok := s.transport.GetProtocol("unicode"); ok && atoi(v) != 0 {
			s.unicode = true
		}
		s.log.Debug("session.protocol",
			slog.Int("server_level", s.serverLevel),
			slog.Bool("case_fold", s.caseFold),
			slog.Bool("unicode", s.unicode))
	}
	s.cmdRun = true
	return err
}

// ServerLevel returns the server protocol level, running "info" first if no
// command has run on this connection.
func (s *Session) ServerLevel(ctx context.Context) (int, error) {
	if err := s.ensureCmdRun(ctx); err != nil {
		return 0, err
	}
	return s.serverLevel, nil
}

// ServerCaseInsensitive reports whether the server folds case.
func (s *Session) ServerCaseInsensitive(ctx context.Context) (bool, error) {
	if err := s.ensureCmdRun(ctx); err != nil {
		return false, err
	}
	return s.caseFold, nil
}

// ServerUnicode reports whether the server runs in unicode mode.
func (s *Session) ServerUnicode(ctx context.Context) (bool, error) {
	if err := s.ensureCmdRun(ctx); err != nil {
		return false, err
	}
	return s.unicode, nil
}

func (s *Session) ensureCmdRun(ctx context.Context) error {
	if !s.IsConnected() {
		return errors.New(errors.ConnectionState, "Not connected to a Perforce server")
	}
	if !s.cmdRun {
		if _, err := s.Run(ctx, "info"); err != nil {
			return err
		}
	}
	return nil
}

func commandString(cmd string, args []string) string {
	var b strings.Builder
	b.WriteString(`"p4 `)
	b.WriteString(cmd)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	b.WriteByte('"')
	return b.String()
}

// atoi reads the leading decimal digits of s, returning 0 when there are none.
func atoi(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
