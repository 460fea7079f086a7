// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides utilities for secure logging and error presentation.
// It includes functions for masking passwords and tickets in log messages and
// formatting session errors for display.
//
// The package helps ensure that credentials are not accidentally exposed in
// logs, command strings or error messages shown to users.
package logging

import (
	"regexp"
	"strings"
)

var (
	rePassword = regexp.MustCompile(`(?i)(password=)([^\s;]+)`)
	reTicket   = regexp.MustCompile(`(?i)(ticket=|ticket:\s*)([A-Za-z0-9]+)`)
	reFlagPass = regexp.MustCompile(`(^|\s)(-P\s+)(\S+)`)
	reURLPass  = regexp.MustCompile(`(?i)(://)([^:/@\s]+):([^@\s]+)(@)`)
)

// Mask replaces sensitive values in the input string with "*".
// For URL credentials, both username and password are masked.
func Mask(s string) string {
	out := s
	out = rePassword.ReplaceAllString(out, "$1***")
	out = reTicket.ReplaceAllString(out, "$1***")
	out = reFlagPass.ReplaceAllString(out, "$1$2***")
	out = reURLPass.ReplaceAllString(out, "$1*:*$4")
	// env-like pairs KEY=VALUE
	for _, k := range []string{"P4PASSWD", "P4GO_PASSWORD"} {
		if i := strings.Index(out, k+"="); i >= 0 {
			end := strings.IndexAny(out[i:], " \t\n;")
			if end < 0 {
				out = out[:i] + k + "=***"
			} else {
				out = out[:i] + k + "=***" + out[i+end:]
			}
		}
	}
	return out
}
