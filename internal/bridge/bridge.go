// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bridge defines the boundary between the session engine and the
// server transport. It provides the Transport contract the engine drives and
// the ClientUser and KeepAlive callbacks a transport invokes while a command
// is running.
//
// The package enables pluggable transport implementations while the session
// engine keeps a single, protocol-independent view of a connection.
package bridge

import (
	"context"

	"p4go/cli/internal/bridge/grpcclient"
	"p4go/cli/internal/bridge/model"
)

// Identity carries the client identity sent with every command.
type Identity = model.Identity

// ClientUser receives the callbacks streamed by a transport during Run.
// All callbacks happen on the goroutine that called Run.
type ClientUser = model.ClientUser

// KeepAlive is polled by a transport between frames; returning false breaks
// the command and leaves the connection dropped.
type KeepAlive = model.KeepAlive

// Transport is one connection to a server.
type Transport interface {
	// Init establishes the connection to port.
	Init(ctx context.Context, port string) error
	// Final closes the connection.
	Final() error
	// SetIdentity replaces the identity sent with subsequent commands.
	SetIdentity(id Identity)
	// SetVar sets a variable for the next Run only.
	SetVar(name, value string)
	// SetProtocol sets a protocol value sent on every Run.
	SetProtocol(name, value string)
	// GetProtocol returns a server protocol value once known.
	GetProtocol(name string) (string, bool)
	// SetBreak installs (or clears, with nil) the keep-alive check.
	SetBreak(k KeepAlive)
	// Run executes one command and streams its results into ui.
	Run(ctx context.Context, cmd string, args []string, ui ClientUser) error
	// Dropped reports whether the connection was lost.
	Dropped() bool
}

// New creates a new transport instance.
// It returns a gRPC client transport.
func New() Transport {
	return &grpcclient.Client{}
}
