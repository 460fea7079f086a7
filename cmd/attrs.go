// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"p4go/cli/internal/attrs"
	"p4go/cli/internal/session"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// attrsCmd lists, reads or sets the attributes of a fresh session.
var attrsCmd = &cobra.Command{
	Use:   "attrs [NAME [VALUE]]",
	Short: "Show or set session attributes",
	Long: `Without arguments attrs lists every session attribute with its kind and value.
With NAME it prints one value; with NAME and VALUE it sets the attribute on a fresh
session first, which validates the value the way a program would.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		switch len(args) {
		case 2:
			if err := s.SetAttrText(args[0], args[1]); err != nil {
				return err
			}
			fallthrough
		case 1:
			v, err := s.Attr(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}

		data := pterm.TableData{{"Name", "Kind", "Access", "Value"}}
		for _, name := range session.Members() {
			kind, ro, _ := session.Describe(name)
			access := "read-write"
			if ro {
				access = "read-only"
			}
			data = append(data, []string{name, kind.String(), access, attrValue(s, name, kind)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	rootCmd.AddCommand(attrsCmd)
}

// attrValue renders an attribute for the listing. Server values need a
// connection and secrets are never shown.
func attrValue(s *session.Session, name string, kind attrs.Kind) string {
	switch name {
	case "password":
		return "***"
	case "server_level", "server_case_insensitive", "server_unicode":
		return "-"
	}
	v, err := s.Attr(name)
	if err != nil {
		return "-"
	}
	if kind == attrs.Object && v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
