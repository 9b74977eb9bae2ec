// Package main is the entry point for the git-flatten CLI.
//
// All functionality lives in internal/cli; this file only injects the
// build-time version information and runs the root command.
package main

import (
	"github.com/shinji-kodama/git-flatten/internal/cli"
)

// version, commit, and date are set at build time via ldflags. During
// development they keep their defaults.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
