// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package grpcclient provides a gRPC-backed implementation of the bridge
// Transport. Commands are sent over a bidirectional stream whose frames are
// generic protobuf structs, so no generated stubs are needed. The client sends
// the command frame, relays every response frame to the session's ClientUser
// on the calling goroutine and answers resolve prompts on the same stream. It
// tracks whether the link dropped.
//
// Server protocol values arrive as response header metadata named
// "p4-protocol-<name>" and become visible through GetProtocol after the first
// command completes.
package grpcclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"
	"time"

	"p4go/cli/internal/bridge/model"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// RunMethod is the full gRPC method name of the command stream.
const RunMethod = "/p4go.Server/Run"

// protocolHeaderPrefix prefixes header keys that carry server protocol values.
const protocolHeaderPrefix = "p4-protocol-"

// Client implements bridge.Transport over a single gRPC connection.
type Client struct {
	// Dialer overrides the network dialer (used by in-process servers).
	Dialer func(ctx context.Context, addr string) (net.Conn, error)
	// DialTimeout bounds Init; zero means 10 seconds.
	DialTimeout time.Duration

	conn      *grpc.ClientConn
	identity  model.Identity
	vars      map[string]string
	protocol  map[string]string
	server    map[string]string
	keepAlive model.KeepAlive
	dropped   bool
}

// Init dials the server named by port.
func (c *Client) Init(ctx context.Context, port string) error {
	target, creds, err := ParsePort(port)
	if err != nil {
		return err
	}
	timeout := c.DialTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds), grpc.WithBlock()}
	if c.Dialer != nil {
		opts = append(opts, grpc.WithContextDialer(c.Dialer))
	}
	conn, err := grpc.DialContext(dctx, target, opts...)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", port, err)
	}
	c.conn = conn
	c.server = make(map[string]string)
	c.vars = nil
	c.dropped = false
	return nil
}

// Final closes the connection.
func (c *Client) Final() error {
	c.vars = nil
	c.server = nil
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// SetIdentity replaces the identity sent with subsequent commands.
func (c *Client) SetIdentity(id model.Identity) { c.identity = id }

// SetVar sets a variable for the next Run only.
func (c *Client) SetVar(name, value string) {
	if c.vars == nil {
		c.vars = make(map[string]string)
	}
	c.vars[name] = value
}

// SetProtocol sets a protocol value sent on every Run.
func (c *Client) SetProtocol(name, value string) {
	if c.protocol == nil {
		c.protocol = make(map[string]string)
	}
	c.protocol[name] = value
}

// GetProtocol returns a server protocol value reported by the last commands.
func (c *Client) GetProtocol(name string) (string, bool) {
	v, ok := c.server[name]
	return v, ok
}

// SetBreak installs the keep-alive check polled between frames.
func (c *Client) SetBreak(k model.KeepAlive) { c.keepAlive = k }

// Dropped reports whether the link was lost or broken by the keep-alive.
func (c *Client) Dropped() bool {
	if c.dropped {
		return true
	}
	if c.conn == nil {
		return false
	}
	st := c.conn.GetState()
	return st == connectivity.Shutdown || st == connectivity.TransientFailure
}

// Run sends one command and relays the streamed frames into ui.
// Transport failures are reported to ui as fatal messages; the returned error
// is reserved for failures raised by ui itself.
func (c *Client) Run(ctx context.Context, cmd string, args []string, ui model.ClientUser) error {
	defer func() { c.vars = nil }()
	if c.conn == nil {
		ui.Message(model.Message{Severity: model.SeverityFatal, Text: "Connect to server failed; not connected."})
		return nil
	}

	input, err := ui.Input()
	if err != nil {
		return err
	}
	req, err := c.buildRequest(cmd, args, input)
	if err != nil {
		return err
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cs, err := c.conn.NewStream(sctx, &grpc.StreamDesc{ServerStreams: true, ClientStreams: true}, RunMethod)
	if err != nil {
		c.fail(ui, err)
		return nil
	}
	stream := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: cs}
	defer func() { _ = stream.CloseSend() }()
	if err := stream.Send(req); err != nil {
		c.fail(ui, err)
		return nil
	}
	if md, err := stream.Header(); err == nil {
		c.absorb(md)
	}

	for {
		if c.keepAlive != nil && !c.keepAlive.IsAlive() {
			cancel()
			c.dropped = true
			return nil
		}
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.fail(ui, err)
			return nil
		}
		reply, err := Dispatch(frame, ui)
		if err != nil {
			return err
		}
		if reply == nil {
			continue
		}
		if err := stream.Send(reply); err != nil {
			c.fail(ui, err)
			return nil
		}
	}
	c.absorb(stream.Trailer())
	return nil
}

// fail reports a transport error to ui and records a dropped link when the
// status says the server is gone.
func (c *Client) fail(ui model.ClientUser, err error) {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unavailable, codes.Canceled, codes.Aborted:
		c.dropped = true
	}
	ui.Message(model.Message{Severity: model.SeverityFatal, Text: st.Message()})
}

// absorb copies protocol values out of response metadata.
func (c *Client) absorb(md metadata.MD) {
	if c.server == nil {
		c.server = make(map[string]string)
	}
	for k, vals := range md {
		if !strings.HasPrefix(k, protocolHeaderPrefix) || len(vals) == 0 {
			continue
		}
		c.server[strings.TrimPrefix(k, protocolHeaderPrefix)] = vals[len(vals)-1]
	}
}

// buildRequest assembles the request frame.
func (c *Client) buildRequest(cmd string, args []string, input []string) (*structpb.Struct, error) {
	argv := make([]any, len(args))
	for i, a := range args {
		argv[i] = a
	}
	in := make([]any, len(input))
	for i, l := range input {
		in[i] = l
	}
	id := c.identity
	return structpb.NewStruct(map[string]any{
		"cmd":      cmd,
		"args":     argv,
		"vars":     stringMap(c.vars),
		"protocol": stringMap(c.protocol),
		"input":    in,
		"identity": map[string]any{
			"user":     id.User,
			"client":   id.Client,
			"host":     id.Host,
			"password": id.Password,
			"charset":  id.Charset,
			"language": id.Language,
			"cwd":      id.Cwd,
			"prog":     id.Prog,
			"version":  id.Version,
		},
	})
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Dispatch decodes one response frame and invokes the matching ui callback.
// A resolve frame yields the reply frame carrying the client's answer; every
// other frame yields nil.
func Dispatch(frame *structpb.Struct, ui model.ClientUser) (*structpb.Struct, error) {
	f := frame.GetFields()
	str := func(name string) string { return f[name].GetStringValue() }
	num := func(name string) float64 { return f[name].GetNumberValue() }

	switch kind := str("kind"); kind {
	case "stat":
		rec, err := decodeRecord(f["fields"])
		if err != nil {
			return nil, err
		}
		ui.OutputStat(rec)
	case "info":
		ui.OutputInfo(int(num("level")), str("text"))
	case "text":
		ui.OutputText(str("text"))
	case "message":
		sev := model.Severity(int(num("severity")))
		if f["fatal"].GetBoolValue() {
			sev = model.SeverityFatal
		}
		ui.Message(model.Message{Severity: sev, Generic: int(num("generic")), Text: str("text")})
	case "track":
		ui.Track(str("text"))
	case "progress":
		ui.Progress(model.ProgressEvent{
			Phase:       model.ProgressPhase(str("phase")),
			Type:        int(num("type")),
			Description: str("description"),
			Units:       int(num("units")),
			Value:       int64(num("value")),
			Fail:        f["fail"].GetBoolValue(),
		})
	case "resolve":
		result, err := ui.Resolve(model.MergeData{
			YourName:    str("your_name"),
			TheirName:   str("their_name"),
			BaseName:    str("base_name"),
			YourPath:    str("your_path"),
			TheirPath:   str("their_path"),
			BasePath:    str("base_path"),
			ResultPath:  str("result_path"),
			MergeHint:   str("merge_hint"),
			MergeAction: str("merge_action"),
			YoursAction: str("yours_action"),
			TheirAction: str("their_action"),
			Type:        str("type"),
			Info:        str("info"),
		})
		if err != nil {
			return nil, err
		}
		return structpb.NewStruct(map[string]any{"kind": "resolve", "result": result})
	default:
		return nil, fmt.Errorf("unknown frame kind %q", kind)
	}
	return nil, nil
}

// decodeRecord reads the ordered field list of a stat frame. Each element is
// a struct with "name" and "value", where value is a string or a list of
// strings. A plain struct is accepted too, with its keys sorted.
func decodeRecord(v *structpb.Value) (*model.Record, error) {
	rec := model.NewRecord()
	if v == nil {
		return rec, nil
	}
	if s := v.GetStructValue(); s != nil {
		keys := make([]string, 0, len(s.GetFields()))
		for k := range s.GetFields() {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rec.Set(k, decodeValue(s.GetFields()[k]))
		}
		return rec, nil
	}
	for _, item := range v.GetListValue().GetValues() {
		field := item.GetStructValue().GetFields()
		name := field["name"].GetStringValue()
		if name == "" {
			return nil, errors.New("stat frame field without a name")
		}
		rec.Set(name, decodeValue(field["value"]))
	}
	return rec, nil
}

func decodeValue(v *structpb.Value) model.Value {
	if l := v.GetListValue(); l != nil {
		items := make([]string, 0, len(l.GetValues()))
		for _, e := range l.GetValues() {
			items = append(items, e.GetStringValue())
		}
		return model.List(items...)
	}
	return model.Text(v.GetStringValue())
}

// ParsePort converts a P4PORT-style address into a dial target and the
// matching transport credentials. Accepted forms are "ssl:host:port",
// "tcp:host:port", "host:port" and a bare "port" meaning localhost.
func ParsePort(port string) (string, credentials.TransportCredentials, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", nil, errors.New("empty port")
	}
	secure := false
	switch {
	case strings.HasPrefix(p, "ssl:"):
		secure = true
		p = strings.TrimPrefix(p, "ssl:")
	case strings.HasPrefix(p, "tcp:"):
		p = strings.TrimPrefix(p, "tcp:")
	}
	if !strings.Contains(p, ":") {
		p = net.JoinHostPort("localhost", p)
	}
	host, _, err := net.SplitHostPort(p)
	if err != nil {
		return "", nil, fmt.Errorf("invalid port %q: %w", port, err)
	}
	if secure {
		return p, credentials.NewTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}), nil
	}
	return p, insecure.NewCredentials(), nil
}
