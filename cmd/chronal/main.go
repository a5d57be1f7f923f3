// Package main is the entry point for the chronal CLI.
//
// Usage:
//
//	chronal [flags] <command> [subcommand] [args]
//
// Commands:
//
//	fmt      - Parse and print notation in canonical form
//	atoms    - List the atoms of a rhythm
//	beats    - Draw beat markers
//	edit     - Replace notes, change time signatures, create tuplets
//	render   - Render a click track to WAV
//	preset   - Manage saved rhythms
//	serve    - Serve live sessions over WebSocket
//	config   - Show and change configuration
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/cognitivitydev/Chronal-sub002/cmd/chronal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
