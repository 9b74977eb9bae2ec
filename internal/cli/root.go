// Package cli implements the cobra-based command surface of git-flatten.
//
// The tool is a single command: parse flags, clean the tree, optionally
// publish. root.go defines the command, the global output flags, and the
// error-to-exit-code translation; run.go holds the run sequencing.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/git-flatten/internal/model"
)

// Global flag variables bound to cobra persistent flags.
var (
	// jsonOutput switches all command output to structured JSON for
	// machine consumption. Errors go to stderr in JSON form as well.
	jsonOutput bool

	// verbose enables trace output on stderr.
	verbose bool
)

// Version, Commit, and Date are injected from the main package, which in
// turn receives them from ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command. Unlike a
// multi-command CLI there are no subcommands; the root command carries the
// whole run.
func NewRootCommand() *cobra.Command {
	flags := &flattenFlags{}

	rootCmd := &cobra.Command{
		Use:   "git-flatten",
		Short: "Strip nested repository metadata and publish a flat repository",
		Long: `git-flatten removes version-control metadata from a directory tree and
optionally publishes the result as a single fresh repository.

It deletes the root-level .gitmodules file and every .git directory under
the root (deepest first), then, when --repo is given, initializes a
repository, commits everything, points the remote at the given URL, and
pushes the main branch.

Examples:
  git-flatten --dry-run
  git-flatten -d ./labs
  git-flatten -d ./labs -r git@example.com:me/labs.git -m "Lab submission"`,

		// Errors are formatted by Execute (text or JSON), so cobra's own
		// usage/error printing is silenced.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlatten(flags)
		},
	}

	rootCmd.Flags().StringVarP(&flags.dir, "dir", "d", ".", "Root directory to clean")
	rootCmd.Flags().StringVarP(&flags.repo, "repo", "r", "", "Remote URL to publish to after cleaning")
	rootCmd.Flags().StringVarP(&flags.message, "message", "m", DefaultCommitMessage, "Commit message for the publish step")
	rootCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Only print what would be done; do not delete or push")
	rootCmd.Flags().BoolVar(&flags.keepRoot, "keep-root", false, "Preserve the top-level repository metadata; only nested markers are removed")

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	return rootCmd
}

// Execute runs the root command and translates errors into the process
// exit code. The exit contract is 0 on success and 1 on any failure; the
// error's FailureKind is reported in the message so callers can still see
// which phase failed.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(string(cliErr.Kind), cliErr.Message, cliErr.Err)
			os.Exit(1)
		}

		printError(string(model.FailGeneral), err.Error(), nil)
		os.Exit(1)
	}
}

// printError outputs an error in text or JSON form depending on the --json
// flag. Errors always go to stderr; stdout is reserved for run output.
func printError(kind, message string, underlying error) {
	if jsonOutput {
		errMap := map[string]interface{}{
			"kind":    kind,
			"message": message,
		}
		if underlying != nil {
			errMap["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(map[string]interface{}{"error": errMap}, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
