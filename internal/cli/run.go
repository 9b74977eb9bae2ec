// Package cli — run.go sequences a full git-flatten run: validate the root, load the
// optional config, remove marker files and directories, report counts, and
// publish when a remote URL was supplied. Cleanup failures are reported per
// entry and absorbed; publish failures abort with a non-zero exit while the
// cleanup results already printed stay valid.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/shinji-kodama/git-flatten/internal/cleaner"
	"github.com/shinji-kodama/git-flatten/internal/config"
	"github.com/shinji-kodama/git-flatten/internal/gitx"
	"github.com/shinji-kodama/git-flatten/internal/model"
	"github.com/shinji-kodama/git-flatten/internal/publisher"
	"github.com/shinji-kodama/git-flatten/internal/scanner"
)

// DefaultCommitMessage is used when no --message is given, or when the
// given message is blank.
const DefaultCommitMessage = "Add files for submission"

// flattenFlags holds the flag values for the root command.
type flattenFlags struct {
	// dir is the root directory to operate on.
	dir string

	// repo is the remote URL to publish to; empty skips publishing.
	repo string

	// message is the commit message for the publish step.
	message string

	// dryRun replaces destructive and publishing actions with reports.
	dryRun bool

	// keepRoot preserves the top-level repository metadata so an existing
	// repository can be reused for the publish.
	keepRoot bool
}

// runFlatten executes the whole run. Fatal conditions are returned as
// CLIErrors for Execute to translate; per-entry cleanup failures are
// printed and only influence the report's failure count.
func runFlatten(flags *flattenFlags) error {
	root, err := resolveRoot(flags.dir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return model.WrapCLIError(model.FailGeneral, "invalid configuration", err)
	}

	message := effectiveMessage(flags.message)

	if !jsonOutput {
		fmt.Printf("Root: %s\n", root)
	}

	markers, err := scanner.NewScanner(cfg.MarkerDirs, cfg.Exclude).Scan(root)
	if err != nil {
		return err
	}
	if flags.keepRoot {
		markers = dropRootMarkers(markers, root)
	}

	VerboseLog("Found %d marker directories under %s", len(markers), root)

	remover := cleaner.NewRemover()

	fileOutcomes := remover.RemoveMarkerFiles(root, cfg.MarkerFiles, flags.dryRun)
	printOutcomes(fileOutcomes)

	dirOutcomes := remover.RemoveMarkerDirs(markers, flags.dryRun)
	printOutcomes(dirOutcomes)

	report := model.RunReport{
		Root:         root,
		DryRun:       flags.dryRun,
		FilesRemoved: cleaner.Removed(fileOutcomes),
		DirsRemoved:  cleaner.Removed(dirOutcomes),
		Failures:     cleaner.Failed(fileOutcomes) + cleaner.Failed(dirOutcomes),
	}

	if !jsonOutput {
		fmt.Printf("Removed %d marker director%s.\n",
			report.DirsRemoved, plural(report.DirsRemoved, "y", "ies"))
	}

	if flags.repo == "" {
		if flags.dryRun && !jsonOutput {
			fmt.Println("[dry-run] No --repo given, skipping publish.")
		}
		printReport(report)
		return nil
	}

	p := publisher.New(gitx.NewExecRunner(), publisher.Options{
		RemoteName:        cfg.RemoteName,
		Branch:            cfg.Branch,
		ReuseTopLevelRepo: cfg.Reuse(),
	})
	p.Logf = VerboseLog

	if flags.dryRun {
		if !jsonOutput {
			fmt.Printf("[dry-run] Would: %s\n", p.Plan(root, flags.repo, message))
		}
		printReport(report)
		return nil
	}

	pubErr := runStep(fmt.Sprintf("Publishing to %s", flags.repo), func() error {
		return p.Publish(root, flags.repo, message)
	})
	if pubErr != nil {
		// The cleanup counts above remain valid; only the publish failed.
		printReport(report)
		return pubErr
	}

	report.Published = true
	report.Remote = flags.repo
	report.Branch = p.Branch()
	printReport(report)
	return nil
}

// resolveRoot turns the --dir flag into a validated absolute path. The
// filesystem root is rejected outright: a scan starting there could only
// be a mistake, and the cleaner would happily act on it.
func resolveRoot(dir string) (string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", model.WrapCLIError(model.FailInvalidRoot,
			fmt.Sprintf("cannot resolve path %q", dir), err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", model.WrapCLIError(model.FailInvalidRoot,
			fmt.Sprintf("not a directory: %s", root), err)
	}
	if !info.IsDir() {
		return "", model.NewCLIError(model.FailInvalidRoot,
			fmt.Sprintf("not a directory: %s", root))
	}

	if filepath.Dir(root) == root {
		return "", model.NewCLIError(model.FailInvalidRoot,
			fmt.Sprintf("refusing to operate on the filesystem root: %s", root))
	}

	return root, nil
}

// effectiveMessage returns the commit message to use, falling back to the
// default when the input is blank.
func effectiveMessage(message string) string {
	if strings.TrimSpace(message) == "" {
		return DefaultCommitMessage
	}
	return message
}

// dropRootMarkers removes the top-level repository marker (root/.git, or
// the root itself when the root is named like a marker) from the scan
// result, implementing --keep-root.
func dropRootMarkers(markers []model.MarkerPath, root string) []model.MarkerPath {
	kept := markers[:0]
	for _, m := range markers {
		if m.Path == root || filepath.Dir(m.Path) == root {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// printOutcomes reports each cleanup outcome as it was recorded. In JSON
// mode individual outcomes are omitted; the final report carries the
// aggregate counts.
func printOutcomes(outcomes []cleaner.Outcome) {
	if jsonOutput {
		for _, o := range outcomes {
			if o.Err != nil {
				VerboseLog("error deleting %s: %v", o.Marker.Path, o.Err)
			}
		}
		return
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, o := range outcomes {
		switch {
		case o.DryRun:
			fmt.Printf("[dry-run] Would delete: %s\n", o.Marker.Path)
		case o.Removed:
			green.Printf("Deleted: %s\n", o.Marker.Path)
		case o.Err != nil:
			red.Fprintf(os.Stderr, "Error deleting %s: %v\n", o.Marker.Path, o.Err)
		}
	}
}

// printReport emits the aggregate run report in JSON mode. Text mode has
// already reported everything incrementally.
func printReport(report model.RunReport) {
	if !jsonOutput {
		return
	}
	data, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(data))
}

// plural picks the singular or plural suffix for a count.
func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
