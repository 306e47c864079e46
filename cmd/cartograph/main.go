// Package main provides the entry point for the cartograph CLI tool.
package main

import (
	"os"

	"github.com/atlasgov/cartograph/cmd/cartograph/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
