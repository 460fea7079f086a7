// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session implements the session engine: one logical connection to a
// server together with its configuration. A Session owns the connection state
// machine, injects protocol variables before every command, runs at most one
// command at a time, and decides from the exception level whether command
// errors and warnings are returned to the caller or absorbed.
//
// A Session is not safe for concurrent use. Callbacks streamed by the
// transport run on the goroutine that called Run and must not call Run again.
package session

import (
	"context"
	"log/slog"
	"os"
	"os/user"
	"runtime"
	"strconv"

	"p4go/cli/internal/bridge"
	"p4go/cli/internal/bridge/model"
	"p4go/cli/internal/errors"
	"p4go/cli/internal/logging"
	"p4go/cli/internal/results"
	"p4go/cli/internal/specdef"

	"github.com/google/uuid"
)

// State is the connection state of a session.
type State int

const (
	Disconnected State = iota
	Connected
	// ConnectedDropped means the transport lost the link while the session
	// still considers itself connected.
	ConnectedDropped
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case ConnectedDropped:
		return "connected (dropped)"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

const (
	// DefaultPort is used when neither configuration nor P4PORT names a server.
	DefaultPort = "perforce:1666"
	// DefaultProg identifies the program to the server unless overridden.
	DefaultProg = "p4go"
	// DefaultAPILevel is the client protocol level announced by default.
	DefaultAPILevel = 90
	// PatchLevel is the release of this library reported by PATCHLEVEL.
	PatchLevel = "2025.1"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Records are filtered by the session's own
// level, which follows the debug attribute.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.baseLog = l }
}

// WithEnv replaces the process environment lookup.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(s *Session) { s.lookupEnv = lookup }
}

// Session is one logical connection to a server.
type Session struct {
	id        string
	baseLog   *slog.Logger
	log       *slog.Logger
	logLevel  *slog.LevelVar
	transport bridge.Transport
	sink      *results.Sink
	specs     *specdef.Cache

	connected bool
	depth     int

	// Latched from the first command on a connection; cleared by Disconnect.
	cmdRun      bool
	serverLevel int
	caseFold    bool
	unicode     bool

	tagged         bool
	streams        bool
	track          bool
	apiLevel       int
	maxResults     int
	maxScanRows    int
	maxLockTime    int
	exceptionLevel int
	debug          int

	port       string
	user       string
	client     string
	host       string
	charset    string
	language   string
	cwd        string
	prog       string
	version    string
	password   string
	ticketFile string
	encoding   string

	env       map[string]string
	lookupEnv func(string) (string, bool)
	lastSpec  string
}

// New creates a disconnected session that talks through t.
func New(t bridge.Transport, opts ...Option) *Session {
	s := &Session{
		id:             uuid.NewString(),
		logLevel:       new(slog.LevelVar),
		transport:      t,
		sink:           results.NewSink(),
		specs:          specdef.NewCache(),
		tagged:         true,
		streams:        true,
		apiLevel:       DefaultAPILevel,
		exceptionLevel: 2,
		prog:           DefaultProg,
		env:            make(map[string]string),
		lookupEnv:      os.LookupEnv,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.baseLog == nil {
		s.baseLog = logging.New(nil, 0) // discard handler; slog.DiscardHandler needs Go 1.24
	}
	s.logLevel.Set(slog.LevelWarn)
	s.log = slog.New(&logging.LevelHandler{Handler: s.baseLog.Handler(), Level: s.logLevel}).
		With(slog.String("session", s.id))
	s.loadDefaults()
	return s
}

// loadDefaults fills identity fields from the environment.
func (s *Session) loadDefaults() {
	s.port = s.Env("P4PORT")
	if s.port == "" {
		s.port = DefaultPort
	}
	hostname, _ := os.Hostname()
	s.user = s.Env("P4USER")
	if s.user == "" {
		if u, err := user.Current(); err == nil {
			s.user = u.Username
		}
	}
	s.client = s.Env("P4CLIENT")
	if s.client == "" {
		s.client = hostname
	}
	s.host = s.Env("P4HOST")
	s.language = s.Env("P4LANGUAGE")
	s.ticketFile = s.Env("P4TICKETS")
	s.password = s.Env("P4PASSWD")
	if cs := s.Env("P4CHARSET"); cs != "" {
		if _, err := lookupCharset(cs); err == nil {
			s.charset = cs
		} else {
			s.log.Warn("session.charset.ignored", slog.String("charset", cs))
		}
	}
	if wd, err := os.Getwd(); err == nil {
		s.cwd = wd
	}
}

// ID returns the session identifier attached to every log record.
func (s *Session) ID() string { return s.id }

// State reports the connection state without side effects.
func (s *Session) State() State {
	switch {
	case !s.connected:
		return Disconnected
	case s.transport.Dropped():
		return ConnectedDropped
	}
	return Connected
}

// Connect opens the connection and reports whether the session is connected.
// Connecting an already connected session logs a warning and reports true. A
// transport failure is returned when the exception level is above zero;
// otherwise Connect reports false.
func (s *Session) Connect(ctx context.Context) (bool, error) {
	if s.connected {
		s.log.Warn("session.connect.noop", slog.String("reason", "P4.connect() - Perforce client already connected!"))
		return true, nil
	}
	return s.connectOrReconnect(ctx)
}

func (s *Session) connectOrReconnect(ctx context.Context) (bool, error) {
	if s.track {
		s.transport.SetProtocol("track", "")
	}
	s.resetFlags()
	s.transport.SetIdentity(s.identity())

	s.log.Info("session.connect", slog.String("port", s.port), slog.String("user", s.user))
	if err := s.transport.Init(ctx, s.port); err != nil {
		s.log.Warn("session.connect.fail", slog.String("err", err.Error()))
		if s.exceptionLevel > 0 {
			return false, s.except("P4.connect()", errors.ConnectFailed, err.Error(), err)
		}
		return false, nil
	}
	if s.sink.Handler() != nil {
		s.transport.SetBreak(s.sink)
	}
	s.connected = true
	return true, nil
}

// IsConnected reports whether the session is connected and the link is up.
// A dropped link found here disconnects the session.
func (s *Session) IsConnected() bool {
	if !s.connected {
		return false
	}
	if !s.transport.Dropped() {
		return true
	}
	s.log.Info("session.dropped")
	s.disconnect()
	return false
}

// Disconnect closes the connection. Disconnecting a disconnected session logs
// a warning and does nothing.
func (s *Session) Disconnect() {
	if !s.connected {
		s.log.Warn("session.disconnect.noop", slog.String("reason", "P4.disconnect() - Not connected!"))
		return
	}
	s.disconnect()
}

func (s *Session) disconnect() {
	if err := s.transport.Final(); err != nil {
		s.log.Debug("session.final.fail", slog.String("err", err.Error()))
	}
	s.connected = false
	s.resetFlags()
	s.specs.Reset()
	s.sink.Reset()
	s.log.Info("session.disconnect")
}

// Close tears the session down, finalizing the transport if still connected.
func (s *Session) Close() error {
	if s.connected {
		s.disconnect()
	}
	return nil
}

func (s *Session) resetFlags() {
	s.cmdRun = false
	s.serverLevel = 0
	s.caseFold = false
	s.unicode = false
}

func (s *Session) identity() model.Identity {
	return model.Identity{
		User:     s.user,
		Client:   s.client,
		Host:     s.host,
		Password: s.password,
		Charset:  s.charset,
		Language: s.language,
		Cwd:      s.cwd,
		Prog:     s.prog,
		Version:  s.version,
	}
}

// Results exposes the result sink of the last command.
func (s *Session) Results() *results.Sink { return s.sink }

// SetProtocol sets a protocol value sent to the server with every command.
func (s *Session) SetProtocol(name, value string) {
	s.transport.SetProtocol(name, value)
}

// Protocol returns a protocol value reported by the server.
func (s *Session) Protocol(name string) (string, bool) {
	return s.transport.GetProtocol(name)
}

// ExceptionLevel returns the current exception level.
func (s *Session) ExceptionLevel() int { return s.exceptionLevel }

// except builds an escalated error carrying the current command's errors and
// warnings.
func (s *Session) except(fn string, kind errors.Kind, msg string, cause error) error {
	e := errors.New(kind, errors.Compose(fn, msg, s.sink.FormatErrors(), s.sink.FormatWarnings(), s.exceptionLevel))
	e.Err = cause
	e.Errors = s.sink.Errors()
	e.Warnings = s.sink.Warnings()
	return e
}

func (s *Session) setDebug(level int) {
	s.debug = level
	switch {
	case level <= 0:
		s.logLevel.Set(slog.LevelWarn)
	case level == 1:
		s.logLevel.Set(slog.LevelInfo)
	default:
		s.logLevel.Set(slog.LevelDebug)
	}
}

func osName() string {
	switch runtime.GOOS {
	case "windows":
		return "NT"
	case "darwin":
		return "MACOSX"
	}
	return "UNIX"
}
