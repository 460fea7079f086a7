// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"testing"

	"p4go/cli/internal/bridge/model"
	"p4go/cli/internal/errors"
	"p4go/cli/internal/results"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame func(ui model.ClientUser)

func info(line string) frame {
	return func(ui model.ClientUser) { ui.OutputInfo(0, line) }
}

func message(sev model.Severity, text string) frame {
	return func(ui model.ClientUser) { ui.Message(model.Message{Severity: sev, Text: text}) }
}

func resolve(m model.MergeData, answers *[]string) frame {
	return func(ui model.ClientUser) {
		result, _ := ui.Resolve(m)
		*answers = append(*answers, result)
	}
}

func stat(kv ...string) frame {
	return func(ui model.ClientUser) {
		rec := model.NewRecord()
		for i := 0; i+1 < len(kv); i += 2 {
			rec.SetText(kv[i], kv[i+1])
		}
		ui.OutputStat(rec)
	}
}

// fakeTransport replays scripted frames per command.
type fakeTransport struct {
	initErr  error
	inits    int
	finals   int
	identity model.Identity
	pending  []Var
	lastVars []Var
	protocol map[string]string
	server   map[string]string
	alive    model.KeepAlive
	dropped  bool
	runs     []string
	inputs   [][]string
	frames   map[string][]frame
	runErr   error
}

func newFake() *fakeTransport {
	return &fakeTransport{
		protocol: map[string]string{},
		server:   map[string]string{},
		frames:   map[string][]frame{},
	}
}

func (f *fakeTransport) Init(context.Context, string) error {
	f.inits++
	if f.initErr != nil {
		return f.initErr
	}
	f.dropped = false
	return nil
}

func (f *fakeTransport) Final() error { f.finals++; return nil }
func (f *fakeTransport) SetIdentity(id model.Identity) { f.identity = id }
func (f *fakeTransport) SetVar(name, value string) {
	f.pending = append(f.pending, Var{Name: name, Value: value})
}
func (f *fakeTransport) SetProtocol(name, value string) { f.protocol[name] = value }
func (f *fakeTransport) GetProtocol(name string) (string, bool) {
	v, ok := f.server[name]
	return v, ok
}
func (f *fakeTransport) SetBreak(k model.KeepAlive) { f.alive = k }
func (f *fakeTransport) Dropped() bool { return f.dropped }

func (f *fakeTransport) Run(_ context.Context, cmd string, args []string, ui model.ClientUser) error {
	f.lastVars, f.pending = f.pending, nil
	f.runs = append(f.runs, strings.TrimSpace(cmd+" "+strings.Join(args, " ")))
	in, err := ui.Input()
	if err != nil {
		return err
	}
	f.inputs = append(f.inputs, in)
	if f.runErr != nil {
		return f.runErr
	}
	for _, fr := range f.frames[cmd] {
		if f.alive != nil && !f.alive.IsAlive() {
			f.dropped = true
			return nil
		}
		fr(ui)
	}
	return nil
}

type funcHandler struct {
	onInfo func(level int, line string) (results.Action, error)
}

func (h *funcHandler) OutputStat(*model.Record) (results.Action, error) { return results.Report, nil }
func (h *funcHandler) OutputInfo(level int, line string) (results.Action, error) {
	if h.onInfo == nil {
		return results.Report, nil
	}
	return h.onInfo(level, line)
}
func (h *funcHandler) OutputMessage(model.Message) (results.Action, error) {
	return results.Report, nil
}

func testEnv(vars map[string]string) Option {
	return WithEnv(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
}

func newTestSession(t *testing.T, f *fakeTransport) (*Session, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := New(f, WithLogger(log), testEnv(map[string]string{"P4USER": "bob", "P4CLIENT": "ws"}))
	return s, &buf
}

func connect(t *testing.T, s *Session) {
	t.Helper()
	ok, err := s.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConnectAndDisconnectAreIdempotent(t *testing.T) {
	f := newFake()
	s, logs := newTestSession(t, f)

	assert.Equal(t, Disconnected, s.State())
	connect(t, s)
	assert.Equal(t, Connected, s.State())

	ok, err := s.Connect(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok, "an open connection still counts as connected")
	assert.Equal(t, 1, f.inits)
	assert.Contains(t, logs.String(), "session.connect.noop")

	s.Disconnect()
	s.Disconnect()
	assert.Equal(t, 1, f.finals)
	assert.Equal(t, Disconnected, s.State())
	assert.Contains(t, logs.String(), "session.disconnect.noop")
}

func TestConnectFailure(t *testing.T) {
	tests := []struct {
		name    string
		level   int
		wantErr bool
	}{
		{name: "absorbed at level 0", level: 0},
		{name: "returned at level 1", level: 1, wantErr: true},
		{name: "returned at level 2", level: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			f.initErr = assert.AnError
			s, _ := newTestSession(t, f)
			require.NoError(t, s.SetAttr("exception_level", tt.level))

			ok, err := s.Connect(context.Background())
			assert.False(t, ok)
			assert.False(t, s.IsConnected())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ConnectFailed, errors.KindOf(err))
				assert.ErrorIs(t, err, assert.AnError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNestedRunFromHandlerIsRejected(t *testing.T) {
	f := newFake()
	f.frames["files"] = []frame{info("//depot/a.c")}
	s, logs := newTestSession(t, f)

	var nestedOut []model.Output
	var nestedErr error
	called := false
	h := &funcHandler{onInfo: func(int, string) (results.Action, error) {
		called = true
		nestedOut, nestedErr = s.Run(context.Background(), "info")
		return results.Report, nil
	}}
	require.NoError(t, s.SetAttr("handler", h))
	connect(t, s)

	out, err := s.Run(context.Background(), "files", "//depot/...")
	require.NoError(t, err)
	require.True(t, called)
	assert.Nil(t, nestedOut)
	assert.NoError(t, nestedErr)
	assert.Equal(t, []string{"files //depot/..."}, f.runs)
	assert.Equal(t, []model.Output{{Line: "//depot/a.c"}}, out)
	assert.Contains(t, logs.String(), "session.run.nested")
}

func TestSetPortWhileConnected(t *testing.T) {
	s, _ := newTestSession(t, newFake())
	require.NoError(t, s.SetAttr("port", "ssl:p4:1666"))
	connect(t, s)

	err := s.SetAttr("port", "other:1666")
	require.Error(t, err)
	assert.Equal(t, errors.ConnectionState, errors.KindOf(err))
	assert.Contains(t, err.Error(), "Can't change port once you've connected.")

	port, err := s.Attr("port")
	require.NoError(t, err)
	assert.Equal(t, "ssl:p4:1666", port)

	err = s.SetAttr("track", 1)
	assert.Equal(t, errors.ConnectionState, errors.KindOf(err))
}

func TestRunExceptionLevels(t *testing.T) {
	errFrames := []frame{info("partial"), message(model.SeverityFailed, "no such file(s).\n")}
	warnFrames := []frame{info("partial"), message(model.SeverityWarning, "file(s) up-to-date.")}

	tests := []struct {
		name     string
		frames   []frame
		level    int
		wantKind errors.Kind
		wantMsg  string
	}{
		{name: "errors at level 0", frames: errFrames, level: 0},
		{
			name: "errors at level 1", frames: errFrames, level: 1,
			wantKind: errors.CommandFailed,
			wantMsg:  "[P4#run] Errors during command execution( \"p4 sync //depot/...\" )\n[Error]: no such file(s).\n\n",
		},
		{
			name: "errors at level 2", frames: errFrames, level: 2,
			wantKind: errors.CommandFailed,
			wantMsg:  "[P4#run] Errors during command execution( \"p4 sync //depot/...\" )\n[Error]: no such file(s).\n\n",
		},
		{name: "warnings at level 0", frames: warnFrames, level: 0},
		{name: "warnings at level 1", frames: warnFrames, level: 1},
		{
			name: "warnings at level 2", frames: warnFrames, level: 2,
			wantKind: errors.CommandWarned,
			wantMsg:  "[P4#run] Warnings during command execution( \"p4 sync //depot/...\" )\n[Warning]: file(s) up-to-date.\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			f.frames["sync"] = tt.frames
			s, _ := newTestSession(t, f)
			require.NoError(t, s.SetAttr("exception_level", tt.level))
			connect(t, s)

			out, err := s.Run(context.Background(), "sync", "//depot/...")
			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, []model.Output{{Line: "partial"}}, out)
				return
			}
			require.Error(t, err)
			assert.Nil(t, out)
			var e *errors.E
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantMsg, e.Message)
			assert.True(t, s.IsConnected())
		})
	}
}

func TestRunNotConnected(t *testing.T) {
	s, _ := newTestSession(t, newFake())

	_, err := s.Run(context.Background(), "info")
	require.Error(t, err)
	var e *errors.E
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errors.NotConnected, e.Kind)
	assert.Equal(t, "[P4.run()] not connected.", e.Message)

	require.NoError(t, s.SetAttr("exception_level", 0))
	out, err := s.Run(context.Background(), "info")
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestFatalErrorDisconnects(t *testing.T) {
	f := newFake()
	f.frames["sync"] = []frame{message(model.SeverityFatal, "Connection reset by peer")}
	s, _ := newTestSession(t, f)
	connect(t, s)

	_, err := s.Run(context.Background(), "sync")
	require.Error(t, err)
	assert.Equal(t, errors.CommandFailed, errors.KindOf(err))
	var e *errors.E
	require.True(t, errors.As(err, &e))
	assert.Equal(t, []string{"Connection reset by peer"}, e.Errors)
	assert.Equal(t, Disconnected, s.State())
	assert.Equal(t, 1, f.finals)
}

func TestServerValuesLatchOnFirstCommand(t *testing.T) {
	f := newFake()
	f.server["server2"] = "50"
	f.server["nocase"] = ""
	f.server["unicode"] = "1"
	s, _ := newTestSession(t, f)

	_, err := s.ServerLevel(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not connected to a Perforce server")

	connect(t, s)
	level, err := s.ServerLevel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, level)
	assert.Equal(t, []string{"info"}, f.runs)

	fold, err := s.ServerCaseInsensitive(context.Background())
	require.NoError(t, err)
	assert.True(t, fold)
	uni, err := s.Attr("server_unicode")
	require.NoError(t, err)
	assert.Equal(t, true, uni)

	f.server["server2"] = "99"
	_, err = s.Run(context.Background(), "changes")
	require.NoError(t, err)
	level, err = s.ServerLevel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, level)

	// a new connection latches again
	s.Disconnect()
	connect(t, s)
	level, err = s.ServerLevel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 99, level)
}

func TestRunReconnectsAfterHandlerCancels(t *testing.T) {
	f := newFake()
	f.frames["files"] = []frame{info("//depot/a.c"), info("//depot/b.c")}
	s, _ := newTestSession(t, f)

	var seen []string
	h := &funcHandler{onInfo: func(_ int, line string) (results.Action, error) {
		seen = append(seen, line)
		return results.Cancel, nil
	}}
	require.NoError(t, s.SetAttr("handler", h))
	connect(t, s)

	_, err := s.Run(context.Background(), "files", "//depot/...")
	require.NoError(t, err)
	assert.Equal(t, []string{"//depot/a.c"}, seen)
	assert.Equal(t, 2, f.inits)
	assert.Equal(t, 1, f.finals)
	assert.Equal(t, Connected, s.State())
}

func TestRunReturnsHandlerErrors(t *testing.T) {
	f := newFake()
	f.frames["files"] = []frame{info("//depot/a.c")}
	s, _ := newTestSession(t, f)
	h := &funcHandler{onInfo: func(int, string) (results.Action, error) {
		return results.Report, assert.AnError
	}}
	require.NoError(t, s.SetAttr("handler", h))
	connect(t, s)

	_, err := s.Run(context.Background(), "files")
	require.Error(t, err)
	assert.Equal(t, errors.Callback, errors.KindOf(err))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBuildProtocolVars(t *testing.T) {
	tests := []struct {
		name string
		in   VarSettings
		want []Var
	}{
		{
			name: "defaults",
			in:   VarSettings{Prog: "p4go", Tagged: true, Streams: true, APILevel: 90},
			want: []Var{{Name: "prog", Value: "p4go"}, {Name: "tag"}, {Name: "enableStreams"}},
		},
		{
			name: "streams need api level 70",
			in:   VarSettings{Prog: "p4go", Streams: true, APILevel: 69},
			want: []Var{{Name: "prog", Value: "p4go"}},
		},
		{
			name: "limits version and progress",
			in: VarSettings{
				Prog: "tool", Version: "1.2", MaxResults: 10, MaxScanRows: 20, MaxLockTime: 30, Progress: true,
			},
			want: []Var{
				{Name: "prog", Value: "tool"},
				{Name: "version", Value: "1.2"},
				{Name: "maxResults", Value: "10"},
				{Name: "maxScanRows", Value: "20"},
				{Name: "maxLockTime", Value: "30"},
				{Name: "progress", Value: "1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildProtocolVars(tt.in))
		})
	}
}

func TestRunSendsProtocolVarsAndIdentity(t *testing.T) {
	f := newFake()
	s, _ := newTestSession(t, f)
	require.NoError(t, s.Init(map[string]any{"maxresults": 5, "tagged": false, "prog": "build-bot"}))
	connect(t, s)

	_, err := s.Run(context.Background(), "info")
	require.NoError(t, err)
	assert.Equal(t, []Var{
		{Name: "prog", Value: "build-bot"},
		{Name: "enableStreams"},
		{Name: "maxResults", Value: "5"},
	}, f.lastVars)
	assert.Equal(t, "bob", f.identity.User)
	assert.Equal(t, "ws", f.identity.Client)
}

func TestInitRejectsUnknownKeywords(t *testing.T) {
	tests := []struct {
		name    string
		in      map[string]any
		wantErr string
	}{
		{name: "known keywords", in: map[string]any{"port": "1666", "exception_level": 1}},
		{name: "unknown integer", in: map[string]any{"bogus": 1}, wantErr: "No integer keyword with name bogus"},
		{name: "unknown string", in: map[string]any{"bogus": "x"}, wantErr: "No string keyword with name bogus"},
		{name: "object attribute", in: map[string]any{"errors": 1}, wantErr: "No integer keyword with name errors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t, newFake())
			err := s.Init(tt.in)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.Attribute, errors.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAttributes(t *testing.T) {
	s, _ := newTestSession(t, newFake())

	v, err := s.Attr("PATCHLEVEL")
	require.NoError(t, err)
	assert.Equal(t, PatchLevel, v)

	assert.Error(t, s.SetAttr("PATCHLEVEL", "x"))
	assert.Error(t, s.SetAttr("exception_level", -1))
	assert.Error(t, s.SetAttr("handler", "not a handler"))
	assert.Error(t, s.SetAttr("input", 42))

	require.NoError(t, s.SetAttrText("maxresults", "100"))
	v, err = s.Attr("maxresults")
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	require.NoError(t, s.SetAttr("debug", 2))
	assert.Equal(t, slog.LevelDebug, s.logLevel.Level())

	members := Members()
	assert.Contains(t, members, "exception_level")
	assert.Contains(t, members, "server_level")
	kind, ro, ok := Describe("errors")
	require.True(t, ok)
	assert.Equal(t, "object", kind.String())
	assert.True(t, ro)
}

const jobDef = "Job;code:101;rq;len:32;;" +
	"Status;code:102;type:select;rq;len:10;val:open/suspended/closed;;" +
	"User;code:103;rq;len:32;;" +
	"Description;code:105;type:text;rq;;"

const jobForm = "Job:\tjob000001\n\nStatus:\topen\n\nUser:\tbob\n\nDescription:\n\tfix the build\n"

func TestParseRecordFetchesDefinitionOnce(t *testing.T) {
	f := newFake()
	f.frames["job"] = []frame{stat("specdef", jobDef, "Job", "new", "Status", "open")}
	s, _ := newTestSession(t, f)
	connect(t, s)

	rec, err := s.ParseRecord(context.Background(), "job", jobForm)
	require.NoError(t, err)
	assert.Equal(t, "job000001", rec.GetText("Job"))
	assert.Equal(t, "fix the build\n", rec.GetText("Description"))
	assert.Equal(t, []string{"job -o"}, f.runs)

	text, err := s.FormatRecord(context.Background(), "job", rec)
	require.NoError(t, err)
	again, err := s.ParseRecord(context.Background(), "job", text)
	require.NoError(t, err)
	assert.True(t, rec.Equal(again))
	assert.Equal(t, []string{"job -o"}, f.runs)
	assert.Contains(t, s.SpecTypes(), "job")

	fields, err := s.SpecFields(context.Background(), "job")
	require.NoError(t, err)
	assert.Equal(t, []string{"Job", "Status", "User", "Description"}, fields)
}

func TestParseRecordUnknownType(t *testing.T) {
	s, _ := newTestSession(t, newFake())

	_, err := s.ParseRecord(context.Background(), "job", jobForm)
	require.Error(t, err)
	var e *errors.E
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errors.SpecUnknown, e.Kind)
	assert.Equal(t, "[P4.parse_spec()] No spec definition for job objects.", e.Message)

	require.NoError(t, s.SetAttr("exception_level", 0))
	rec, err := s.ParseRecord(context.Background(), "job", jobForm)
	assert.NoError(t, err)
	assert.Nil(t, rec)
	text, err := s.FormatRecord(context.Background(), "job", model.NewRecord())
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestParseRecordBadText(t *testing.T) {
	s, _ := newTestSession(t, newFake())

	_, err := s.ParseRecord(context.Background(), "client", "Bogus:\tvalue\n")
	require.Error(t, err)
	assert.Equal(t, errors.SpecConversion, errors.KindOf(err))
	assert.Contains(t, err.Error(), "Error converting string to a record.")
}

func TestRunFormatsRecordInput(t *testing.T) {
	f := newFake()
	s, _ := newTestSession(t, f)
	connect(t, s)

	rec := model.NewRecord()
	rec.SetText("Client", "ws")
	rec.SetText("Root", "/tmp/ws")
	rec.Set("View", model.List("//depot/... //ws/..."))
	require.NoError(t, s.SetAttr("input", rec))

	_, err := s.Run(context.Background(), "client", "-i")
	require.NoError(t, err)
	require.Len(t, f.inputs, 1)
	assert.Equal(t, "Client:\tws", f.inputs[0][0])
	assert.Contains(t, f.inputs[0], "\t//depot/... //ws/...")

	// input is consumed by the command that read it
	_, err = s.Run(context.Background(), "client", "-i")
	require.NoError(t, err)
	assert.Nil(t, f.inputs[1])
}

func TestEnv(t *testing.T) {
	s := New(newFake(), testEnv(map[string]string{"P4PORT": "ssl:p4:1666", "P4CONFIG": ".p4config"}))

	assert.Equal(t, "ssl:p4:1666", s.Env("P4PORT"))
	v, err := s.Attr("port")
	require.NoError(t, err)
	assert.Equal(t, "ssl:p4:1666", v)
	v, err = s.Attr("p4config_file")
	require.NoError(t, err)
	assert.Equal(t, ".p4config", v)

	ok, err := s.SetEnv("P4PORT", "1666")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1666", s.Env("P4PORT"))

	_, err = s.SetEnv("", "x")
	assert.Equal(t, errors.Environment, errors.KindOf(err))

	require.NoError(t, s.SetAttr("exception_level", 0))
	ok, err = s.SetEnv("", "x")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCharset(t *testing.T) {
	s, _ := newTestSession(t, newFake())

	err := s.SetAttr("charset", "bogus")
	require.Error(t, err)
	assert.Equal(t, errors.Charset, errors.KindOf(err))
	assert.Contains(t, err.Error(), "Unknown or unsupported charset: bogus")

	require.NoError(t, s.SetAttr("charset", "utf8"))
	require.NoError(t, s.SetAttr("charset", "none"))

	out, err := s.Convert("iso8859-1", "é")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe9}, out)

	out, err = s.Convert("utf8", "日本")
	require.NoError(t, err)
	assert.Equal(t, []byte("日本"), out)

	_, err = s.Convert("iso8859-1", "日本")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Translation of file content failed")

	require.NoError(t, s.SetAttr("exception_level", 0))
	out, err = s.Convert("bogus", "x")
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestEnvironmentCharsetIsValidated(t *testing.T) {
	s := New(newFake(), testEnv(map[string]string{"P4CHARSET": "klingon"}))
	v, err := s.Attr("charset")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

type mergeTool struct {
	result string
	err    error
	seen   []model.MergeData
}

func (m *mergeTool) Resolve(d model.MergeData) (string, error) {
	m.seen = append(m.seen, d)
	return m.result, m.err
}

func TestResolver(t *testing.T) {
	merge := model.MergeData{YourName: "//ws/a.c", TheirName: "//depot/a.c#4", MergeHint: "am"}

	t.Run("rejects values without Resolve", func(t *testing.T) {
		s, _ := newTestSession(t, newFake())
		err := s.SetAttr("resolver", "accept theirs")
		require.Error(t, err)
		assert.Equal(t, errors.Attribute, errors.KindOf(err))
	})

	t.Run("answers prompts", func(t *testing.T) {
		f := newFake()
		var answers []string
		f.frames["resolve"] = []frame{resolve(merge, &answers), info("//ws/a.c - merge from //depot/a.c#4")}
		s, _ := newTestSession(t, f)
		tool := &mergeTool{result: model.ResolveAcceptTheirs}
		require.NoError(t, s.SetAttr("resolver", tool))
		got, err := s.Attr("resolver")
		require.NoError(t, err)
		assert.Same(t, tool, got)
		assert.Contains(t, Members(), "resolver")
		connect(t, s)

		out, err := s.Run(context.Background(), "resolve")
		require.NoError(t, err)
		assert.Len(t, out, 1)
		assert.Equal(t, []string{"at"}, answers)
		require.Len(t, tool.seen, 1)
		assert.Equal(t, "//depot/a.c#4", tool.seen[0].TheirName)
	})

	t.Run("skips without a resolver", func(t *testing.T) {
		f := newFake()
		var answers []string
		f.frames["resolve"] = []frame{resolve(merge, &answers)}
		s, _ := newTestSession(t, f)
		connect(t, s)

		_, err := s.Run(context.Background(), "resolve")
		require.NoError(t, err)
		assert.Equal(t, []string{"s"}, answers)
	})

	t.Run("resolver errors are returned at every level", func(t *testing.T) {
		f := newFake()
		var answers []string
		f.frames["resolve"] = []frame{resolve(merge, &answers)}
		s, _ := newTestSession(t, f)
		require.NoError(t, s.SetAttr("exception_level", 0))
		require.NoError(t, s.SetAttr("resolver", &mergeTool{err: assert.AnError}))
		connect(t, s)

		_, err := s.Run(context.Background(), "resolve")
		require.Error(t, err)
		assert.Equal(t, errors.Callback, errors.KindOf(err))
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, []string{"q"}, answers)
	})
}

func TestRunTransportErrorsFollowExceptionLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   int
		wantErr bool
	}{
		{name: "absorbed at level 0", level: 0},
		{name: "returned at level 1", level: 1, wantErr: true},
		{name: "returned at level 2", level: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			f.runErr = stderrors.New("stream reset")
			s, logs := newTestSession(t, f)
			require.NoError(t, s.SetAttr("exception_level", tt.level))
			connect(t, s)

			out, err := s.Run(context.Background(), "sync")
			assert.Nil(t, out)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.CommandFailed, errors.KindOf(err))
				return
			}
			assert.NoError(t, err)
			assert.Contains(t, logs.String(), "session.run.failed")
		})
	}
}
