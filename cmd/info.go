// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strconv"

	"p4go/cli/internal/bridge/model"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// infoCmd connects, runs "info" and prints what the server reports about
// itself and the session.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show server and session information",
	Long: `The info command connects to the configured server, runs "info" and prints the
result as a table, followed by the protocol values latched for the connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := connectSession(ctx, s); err != nil {
			return err
		}
		out, err := s.Run(ctx, "info")
		if err != nil {
			return err
		}
		for _, o := range out {
			if o.IsRecord() {
				if err := printRecordTable(o.Record); err != nil {
					return err
				}
				continue
			}
			pterm.Println(o.Line)
		}

		level, err := s.ServerLevel(ctx)
		if err != nil {
			return err
		}
		fold, _ := s.ServerCaseInsensitive(ctx)
		unicode, _ := s.ServerUnicode(ctx)
		port, user := sessionIdentity(s)
		pterm.Println()
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Session")).
			Println(fmt.Sprintf("Port:             %s\nUser:             %s\nServer level:     %d\nCase insensitive: %s\nUnicode:          %s",
				port, user, level, strconv.FormatBool(fold), strconv.FormatBool(unicode)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// printRecordTable prints a record as a two-column table in field order.
func printRecordTable(r *model.Record) error {
	data := pterm.TableData{{"Field", "Value"}}
	r.Each(func(name string, v model.Value) {
		data = append(data, []string{name, v.String()})
	})
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
