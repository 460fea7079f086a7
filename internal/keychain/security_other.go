// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build !darwin

package keychain

import "errors"

var errNoSecurityTool = errors.New("the security tool backend is only available on macOS")

// securityBackend is unused outside macOS; NewManager always falls through to
// the keyring library.
type securityBackend struct{}

func newSecurityBackend() (*securityBackend, error) { return nil, errNoSecurityTool }

func (*securityBackend) Set(string, string) error { return errNoSecurityTool }
func (*securityBackend) Get(string) (string, error) { return "", errNoSecurityTool }
func (*securityBackend) Delete(string) error { return errNoSecurityTool }
