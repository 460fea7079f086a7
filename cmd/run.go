// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"p4go/cli/internal/bridge/model"
	"p4go/cli/internal/results"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	runJSON       bool
	runStream     bool
	runProgress   bool
	runInputFile  string
	runUntagged   bool
	runMaxResults int
)

// runCmd runs an arbitrary server command in a fresh session.
var runCmd = &cobra.Command{
	Use:   "run CMD [ARGS...]",
	Short: "Run a server command and print its output",
	Long: `The run command connects, runs one command and prints its output. Tagged
records are printed as tables, or as JSON with --json. With --stream each item is
printed as it arrives instead of after the command completes.

Input for commands that read it (for example "client -i") is taken from --input;
use "-" for standard input.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if runUntagged {
			if err := s.SetAttr("tagged", 0); err != nil {
				return err
			}
		}
		if runMaxResults > 0 {
			if err := s.SetAttr("maxresults", runMaxResults); err != nil {
				return err
			}
		}
		if runInputFile != "" {
			in, err := readInput(cmd.InOrStdin(), runInputFile)
			if err != nil {
				return err
			}
			if err := s.SetAttr("input", in); err != nil {
				return err
			}
		}
		if runStream {
			if err := s.SetAttr("handler", &streamPrinter{w: cmd.OutOrStdout(), json: runJSON}); err != nil {
				return err
			}
		}
		if runProgress {
			if err := s.SetAttr("progress", &progressBar{}); err != nil {
				return err
			}
		}

		if err := connectSession(ctx, s); err != nil {
			return err
		}

		var sp *areaSpinner
		if !runStream && !runProgress {
			sp = startAreaSpinner("Running " + strings.Join(args, " "))
		}
		out, err := s.Run(ctx, args[0], args[1:]...)
		sp.Stop()
		if err != nil {
			return err
		}
		for _, w := range s.Results().Warnings() {
			pterm.Warning.Println(w)
		}
		return printOutputs(cmd.OutOrStdout(), out, runJSON)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print output as JSON")
	runCmd.Flags().BoolVar(&runStream, "stream", false, "Print output as it arrives")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "Show progress bars for long-running commands")
	runCmd.Flags().StringVarP(&runInputFile, "input", "i", "", "File whose contents the command reads as input (- for stdin)")
	runCmd.Flags().BoolVar(&runUntagged, "untagged", false, "Request plain text output instead of tagged records")
	runCmd.Flags().IntVar(&runMaxResults, "maxresults", 0, "Limit the number of rows the server may return")
}

// readInput reads a command's input from a file or, for "-", from stdin.
func readInput(stdin io.Reader, path string) (string, error) {
	var b []byte
	var err error
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(b), nil
}

// printOutputs writes a command's output: records as tables and lines as
// text, or everything as one JSON array.
func printOutputs(w io.Writer, out []model.Output, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if out == nil {
			out = []model.Output{}
		}
		return enc.Encode(out)
	}
	for _, o := range out {
		if o.IsRecord() {
			if err := printRecordTable(o.Record); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(w, o.Line)
	}
	return nil
}

// streamPrinter prints each item as it arrives and keeps nothing.
type streamPrinter struct {
	w    io.Writer
	json bool
}

func (p *streamPrinter) OutputStat(r *model.Record) (results.Action, error) {
	if p.json {
		b, err := json.Marshal(r)
		if err != nil {
			return results.Report, err
		}
		_, err = fmt.Fprintln(p.w, string(b))
		return results.Handled, err
	}
	r.Each(func(name string, v model.Value) {
		fmt.Fprintf(p.w, "%s: %s\n", name, v)
	})
	_, err := fmt.Fprintln(p.w)
	return results.Handled, err
}

func (p *streamPrinter) OutputInfo(level int, line string) (results.Action, error) {
	_, err := fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("... ", level), line)
	return results.Handled, err
}

// OutputMessage leaves errors and warnings to the session so that they are
// escalated by exception level.
func (p *streamPrinter) OutputMessage(model.Message) (results.Action, error) {
	return results.Report, nil
}

// progressBar renders server progress notifications with pterm.
type progressBar struct {
	title string
	bar   *pterm.ProgressbarPrinter
}

func (p *progressBar) Init(int) { p.title = "" }

func (p *progressBar) Description(desc string, _ int) { p.title = desc }

func (p *progressBar) Total(total int64) {
	if p.bar != nil {
		_, _ = p.bar.Stop()
	}
	bar, err := pterm.DefaultProgressbar.WithTotal(int(total)).WithTitle(p.title).WithRemoveWhenDone(true).Start()
	if err == nil {
		p.bar = bar
	}
}

func (p *progressBar) Update(position int64) {
	if p.bar == nil {
		return
	}
	if d := int(position) - p.bar.Current; d > 0 {
		p.bar.Add(d)
	}
}

func (p *progressBar) Done(fail bool) {
	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
	if fail {
		pterm.Warning.Println(p.title + " failed")
	}
}
