// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"p4go/cli/internal/bridge/model"
	"p4go/cli/internal/session"

	"github.com/spf13/cobra"
)

// specCmd groups the form conversion commands.
var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Convert forms between text and JSON records",
	Long: `The spec commands convert forms (client, change, job, ...) between the text a
server sends and structured JSON records. Built-in form types convert offline;
other types are fetched from the server once.`,
}

var specParseCmd = &cobra.Command{
	Use:   "parse TYPE [FILE]",
	Short: "Convert form text into a JSON record",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readSpecSource(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		s, err := specSession(cmd, args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		rec, err := s.ParseRecord(cmd.Context(), args[0], string(text))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

var specFormatCmd = &cobra.Command{
	Use:   "format TYPE [FILE]",
	Short: "Convert a JSON record into form text",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readSpecSource(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		rec := model.NewRecord()
		if err := json.Unmarshal(data, rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		s, err := specSession(cmd, args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		text, err := s.FormatRecord(cmd.Context(), args[0], rec)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), text)
		return err
	},
}

var specFieldsCmd = &cobra.Command{
	Use:   "fields TYPE",
	Short: "List the fields of a form type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := specSession(cmd, args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		fields, err := s.SpecFields(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, f := range fields {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(specCmd)
	specCmd.AddCommand(specParseCmd, specFormatCmd, specFieldsCmd)
}

// specSession returns a session able to convert typ, connecting only when
// the type has no built-in definition.
func specSession(cmd *cobra.Command, typ string) (*session.Session, error) {
	s, err := newSession(cmd)
	if err != nil {
		return nil, err
	}
	if slices.Contains(s.SpecTypes(), typ) {
		return s, nil
	}
	if err := connectSession(cmd.Context(), s); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// readSpecSource reads the FILE argument, or stdin when it is absent or "-".
func readSpecSource(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) < 2 || args[1] == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(args[1])
}
