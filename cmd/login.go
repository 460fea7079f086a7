// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"p4go/cli/internal/config"
	"p4go/cli/internal/keychain"
	"p4go/cli/internal/logging"
	"p4go/cli/internal/terminal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var savePassword bool

// loginCmd authenticates against the server and stores the issued ticket.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the server and remember the ticket",
	Long: `The login command prompts for the user's password, runs "login" against the
configured server and stores the ticket it issues in the OS keychain, keyed by
server address and user name. Later commands use the stored ticket automatically.

With --save-password the password itself is stored as well. A server address or
user name given with --port or --user is saved to the settings file so later
commands use it by default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		port, user := sessionIdentity(s)
		prompt := fmt.Sprintf("Enter password for %s@%s: ", user, port)
		password, err := readPassword(prompt)
		if err != nil {
			return err
		}
		if password == "" {
			return fmt.Errorf("password is required")
		}

		if err := connectSession(ctx, s); err != nil {
			return err
		}
		if err := s.SetAttr("input", password); err != nil {
			return err
		}
		out, err := s.Run(ctx, "login", "-p")
		if err != nil {
			return err
		}

		km, err := keychain.GetManager()
		if err != nil {
			fmt.Println("❌ Secure storage is not available on this system.")
			fmt.Println("   Logged in, but the ticket was not saved.")
			return err
		}
		if ticket := lastLine(out); ticket != "" {
			if err := km.SaveTicket(port, user, ticket); err != nil {
				fmt.Println("❌ Failed to save the ticket securely.")
				return err
			}
		}
		if savePassword {
			if err := km.SavePassword(port, user, password); err != nil {
				fmt.Println("❌ Failed to save the password securely.")
				return err
			}
		}
		flags := cmd.Flags()
		if flags.Changed("port") || flags.Changed("user") {
			if err := rememberIdentity(port, user); err != nil {
				pterm.Warning.Println(logging.PresentError("settings not saved", err))
			}
		}
		fmt.Printf("✅ Logged in as %s on %s\n", user, port)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&savePassword, "save-password", false, "Also store the password in the OS keychain")
}

// rememberIdentity stores the server address and user in the settings file.
func rememberIdentity(port, user string) error {
	return config.Update(func(c *config.Config) {
		c.Port = port
		c.User = user
	})
}

// readPassword prompts on stdout and reads a password without echo when
// stdin is a terminal, or one line otherwise.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		terminal.ClearPreviousLines(len(prompt))
		return string(b), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
