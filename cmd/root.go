// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the p4go CLI application.
// It implements subcommands that open a session against a server, run commands,
// convert forms and manage stored credentials using the Cobra CLI framework.
// The package handles flag parsing, builds sessions from configuration and
// presents session errors in the terminal.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"p4go/cli/internal/bridge"
	"p4go/cli/internal/config"
	"p4go/cli/internal/errors"
	"p4go/cli/internal/keychain"
	"p4go/cli/internal/logging"
	"p4go/cli/internal/session"

	"github.com/spf13/cobra"
)

var (
	showVersion    bool
	flagPort       string
	flagUser       string
	flagClient     string
	flagHost       string
	flagCharset    string
	exceptionLevel int
	verbose        int
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "p4go",
	Short:         "p4go runs version-control server commands over a session",
	Long:          `p4go opens a session against a version-control server, runs commands and converts forms between text and structured records.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("p4go %s\nsession %s (%s)\n", Version, session.PatchLevel, session.DefaultProg)
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and presents any error that occurs.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.PresentSessionError(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version information")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagPort, "port", "p", "", "Server address (overrides P4PORT)")
	pf.StringVarP(&flagUser, "user", "u", "", "User name (overrides P4USER)")
	pf.StringVarP(&flagClient, "client", "c", "", "Client workspace (overrides P4CLIENT)")
	pf.StringVarP(&flagHost, "host", "H", "", "Client host name (overrides P4HOST)")
	pf.StringVarP(&flagCharset, "charset", "C", "", "Character set (overrides P4CHARSET)")
	pf.IntVar(&exceptionLevel, "exception-level", 2, "0 ignores command errors, 1 fails on errors, 2 fails on errors and warnings")
	pf.CountVarP(&verbose, "verbose", "v", "Increase log output (-v warnings, -vv info, -vvv debug)")
}

// newSession builds a disconnected session from configuration, flags and the
// keychain, in that order of priority.
func newSession(cmd *cobra.Command) (*session.Session, error) {
	if verbose >= 3 {
		os.Setenv("P4GO_VERBOSE", "1")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	s := session.New(bridge.New(), session.WithLogger(logging.New(os.Stderr, verbose)))
	if err := config.Apply(cfg, s); err != nil {
		return nil, err
	}

	if err := applyFlags(s, cmd.Flags().Changed); err != nil {
		return nil, err
	}

	if pw, _ := s.Attr("password"); pw == "" {
		port, user := sessionIdentity(s)
		if km, err := keychain.GetManager(); err == nil {
			if secret, err := km.Credential(port, user); err == nil {
				if err := s.SetAttr("password", secret); err != nil {
					return nil, err
				}
			}
		}
	}
	return s, nil
}

// applyFlags assigns the identity flags the user set, the exception level and
// the debug level implied by -v.
func applyFlags(s *session.Session, changed func(name string) bool) error {
	for _, f := range []struct{ flag, attr, value string }{
		{"port", "port", flagPort},
		{"user", "user", flagUser},
		{"client", "client", flagClient},
		{"host", "host", flagHost},
		{"charset", "charset", flagCharset},
	} {
		if changed(f.flag) {
			if err := s.SetAttr(f.attr, f.value); err != nil {
				return err
			}
		}
	}
	if changed("exception-level") {
		if err := s.SetAttr("exception_level", exceptionLevel); err != nil {
			return err
		}
	}
	if verbose >= 2 {
		if err := s.SetAttr("debug", verbose-1); err != nil {
			return err
		}
	}
	return nil
}

// sessionIdentity returns the port and user a session connects as.
func sessionIdentity(s *session.Session) (string, string) {
	port, _ := s.Attr("port")
	user, _ := s.Attr("user")
	p, _ := port.(string)
	u, _ := user.(string)
	return p, u
}

// connectSession connects with an inline spinner on stderr.
func connectSession(ctx context.Context, s *session.Session) error {
	port, _ := sessionIdentity(s)
	stop := startInlineSpinner(os.Stderr, "connecting to "+port, []string{"|", "/", "-", "\\"}, 100*time.Millisecond)
	ok, err := s.Connect(ctx)
	stop()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ConnectFailed, "could not connect to "+port)
	}
	return nil
}
