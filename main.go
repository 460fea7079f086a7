// Package main is the entry point for the p4go CLI application.
// It runs version-control server commands through a session engine.
package main

import (
	"p4go/cli/cmd"
)

// main is the entry point for the p4go CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
