// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"p4go/cli/internal/errors"

	"github.com/pterm/pterm"
)

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}

// FormatSessionError renders a session error for the terminal: a title chosen
// by kind, the error message, the server messages it carries and a hint.
func FormatSessionError(err error) string {
	var e *errors.E
	if !errors.As(err, &e) {
		return pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Error") + "\n\n" + Mask(err.Error()) + "\n"
	}

	var b strings.Builder
	b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(title(e.Kind)))
	b.WriteString("\n\n")

	msg := e.Message
	if len(e.Errors) > 0 || len(e.Warnings) > 0 {
		// the server messages are listed below
		if i := strings.Index(msg, "\n"); i >= 0 {
			msg = msg[:i]
		}
	}
	b.WriteString(Mask(msg))
	b.WriteString("\n")

	for _, m := range e.Errors {
		b.WriteString(pterm.NewStyle(pterm.FgRed).Sprint("  • " + Mask(m)))
		b.WriteString("\n")
	}
	for _, m := range e.Warnings {
		b.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("  • " + Mask(m)))
		b.WriteString("\n")
	}

	if hint := hint(e.Kind); hint != "" {
		b.WriteString("\n")
		b.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ " + hint))
		b.WriteString("\n")
	}
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		b.WriteString("\n")
		b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(e.Err.Error())))
		b.WriteString("\n")
	}
	return b.String()
}

func title(k errors.Kind) string {
	switch k {
	case errors.ConnectFailed:
		return "Connection Failed"
	case errors.NotConnected, errors.ConnectionState:
		return "Not Connected"
	case errors.CommandFailed:
		return "Command Failed"
	case errors.CommandWarned:
		return "Command Warnings"
	case errors.SpecUnknown, errors.SpecConversion:
		return "Form Error"
	case errors.Config:
		return "Configuration Error"
	}
	return "Error"
}

func hint(k errors.Kind) string {
	switch k {
	case errors.ConnectFailed:
		return "Check P4PORT or pass --port, then try again"
	case errors.CommandWarned:
		return "Pass --exception-level 1 to treat warnings as informational"
	case errors.Config:
		return "Fix or remove the configuration file and try again"
	}
	return ""
}

// PresentSessionError displays a formatted session error.
func PresentSessionError(err error) {
	fmt.Println()
	fmt.Println(FormatSessionError(err))
}
