/*
Package main is the entry point for the devtools-hub CLI.

devtools-hub keeps usage history and preferences for a set of developer
utility pages in a local SQLite store.

Usage:

	devtools-hub [command]

Available Commands:

	serve       Run the local HTTP API
	history     Inspect and edit tool history
	pref        Read and write tool preferences
	config      Manage the configuration file
	query       Apply query parameter updates to a URL
	version     Show version information

Examples:

	# Record and list a base64 conversion
	devtools-hub history add base64 --input hello --output aGVsbG8=
	devtools-hub history list base64

	# Serve the HTTP API on 127.0.0.1:8723
	devtools-hub serve
*/
package main

import (
	"fmt"
	"os"

	"github.com/khanglvm/devtools-hub/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
