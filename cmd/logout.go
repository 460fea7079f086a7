// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"p4go/cli/internal/bridge/model"
	"p4go/cli/internal/keychain"
	"p4go/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// logoutCmd ends the server login and removes stored secrets.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate the ticket and remove stored credentials",
	Long: `The logout command runs "logout" against the configured server (best effort)
and removes the ticket and password stored for this server and user from the
OS keychain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		port, user := sessionIdentity(s)

		// Best effort: clear local credentials even when the server is unreachable
		if err := connectSession(cmd.Context(), s); err != nil {
			pterm.Warning.Println(logging.PresentError("server logout skipped", err))
		} else if _, err := s.Run(cmd.Context(), "logout"); err != nil {
			pterm.Warning.Println(logging.PresentError("server logout failed", err))
		}
		if km, err := keychain.GetManager(); err == nil {
			km.Clear(port, user)
		}

		fmt.Printf("✅ Credentials for %s on %s have been removed\n", user, port)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

// lastLine returns the last non-empty text line of a command's output.
func lastLine(out []model.Output) string {
	for i := len(out) - 1; i >= 0; i-- {
		if !out[i].IsRecord() && out[i].Line != "" {
			return out[i].Line
		}
	}
	return ""
}
