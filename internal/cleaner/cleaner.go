// Package cleaner removes version-control marker files and directories.
//
// Removal is best-effort by design: each marker is attempted independently,
// the outcome (removed, simulated, or failed) is recorded, and the batch
// continues past individual failures. Callers receive the full list of
// per-entry outcomes and decide for themselves whether any failure is fatal.
//
// Deletion of a marker directory escalates through three stages:
//  1. a plain recursive delete,
//  2. clearing read-only/write-protection bits across the subtree and
//     retrying (repository object files are created read-only, and on some
//     platforms hooks and pack files keep the plain delete from working),
//  3. a platform force-remove capability, which on Windows shells out to
//     the native recursive delete command with a bounded wait.
//
// The platform capability lives in forceremove_unix.go / forceremove_windows.go
// behind build tags, so the escalation logic here stays branch-free.
package cleaner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/git-flatten/internal/model"
)

// Outcome records what happened to a single marker entry during removal.
type Outcome struct {
	// Marker is the entry the outcome describes.
	Marker model.MarkerPath

	// Removed reports whether the entry was deleted, or counted as deleted
	// in dry-run mode.
	Removed bool

	// DryRun reports that the removal was simulated without touching the
	// filesystem.
	DryRun bool

	// Forced reports that the plain recursive delete was not enough and
	// the entry needed the permission-clearing retry or the platform
	// force-remove fallback.
	Forced bool

	// Err holds the final error for entries that could not be removed
	// even after every fallback. Nil for successful and dry-run outcomes.
	Err error
}

// Remover deletes marker files and directories.
//
// It is stateless; the struct exists as a receiver so a custom force-remove
// timeout or a logger can be attached later without changing call sites.
type Remover struct{}

// NewRemover creates a new Remover.
func NewRemover() *Remover {
	return &Remover{}
}

// DefaultMarkerFile is the submodule configuration file removed from the
// top level of the root directory.
const DefaultMarkerFile = ".gitmodules"

// RemoveMarkerFiles deletes the named marker files directly under root.
// Only the top level is considered; nested copies become harmless once the
// repository directory next to them is gone.
//
// Files that do not exist are skipped silently, which is what makes a
// second run over an already-clean tree report zero removals. Deletion
// failures are recorded in the outcome and do not abort the run.
func (r *Remover) RemoveMarkerFiles(root string, names []string, dryRun bool) []Outcome {
	if len(names) == 0 {
		names = []string{DefaultMarkerFile}
	}

	var outcomes []Outcome
	for _, name := range names {
		path := filepath.Join(root, name)

		info, err := os.Lstat(path)
		if err != nil || info.IsDir() {
			// Absent, or something other than a regular marker file.
			continue
		}

		marker := model.MarkerPath{Path: path, Kind: model.KindFile, Depth: model.Depth(path)}

		if dryRun {
			outcomes = append(outcomes, Outcome{Marker: marker, Removed: true, DryRun: true})
			continue
		}

		if err := os.Remove(path); err != nil {
			outcomes = append(outcomes, Outcome{Marker: marker, Err: err})
			continue
		}
		outcomes = append(outcomes, Outcome{Marker: marker, Removed: true})
	}
	return outcomes
}

// RemoveMarkerDirs deletes the given marker directories in the order they
// are supplied. The caller is expected to pass the scanner's deepest-first
// sequence so nested markers never outlive their ancestors.
//
// In dry-run mode every entry is counted as removed without touching the
// filesystem. Otherwise each entry goes through the three-stage escalation
// described in the package comment. Entries that still cannot be removed
// carry their error in the outcome; the batch always runs to completion.
func (r *Remover) RemoveMarkerDirs(markers []model.MarkerPath, dryRun bool) []Outcome {
	outcomes := make([]Outcome, 0, len(markers))

	for _, m := range markers {
		if dryRun {
			outcomes = append(outcomes, Outcome{Marker: m, Removed: true, DryRun: true})
			continue
		}

		forced, err := r.removeDir(m.Path)
		if err != nil {
			outcomes = append(outcomes, Outcome{Marker: m, Forced: forced, Err: err})
			continue
		}
		outcomes = append(outcomes, Outcome{Marker: m, Removed: true, Forced: forced})
	}

	return outcomes
}

// Removed counts the outcomes that ended in a (real or simulated) removal.
func Removed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Removed {
			n++
		}
	}
	return n
}

// Failed counts the outcomes that ended in an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// removeDir deletes a single directory tree, escalating through the
// permission-clearing retry and the platform force-remove capability.
// The returned bool reports whether escalation past the plain delete
// was needed.
func (r *Remover) removeDir(path string) (bool, error) {
	err := os.RemoveAll(path)
	if err == nil {
		return false, nil
	}

	// Stage 2: clear write protection across the subtree and retry once.
	// Repository object files are written read-only, which blocks RemoveAll
	// on platforms where unlink honors the file's own permission bits.
	clearWriteProtection(path)
	if err = os.RemoveAll(path); err == nil {
		return true, nil
	}

	// Stage 3: the platform capability of last resort.
	if ferr := forceRemove(path); ferr == nil {
		return true, nil
	}

	return true, fmt.Errorf("could not remove %s: %w", path, err)
}

// clearWriteProtection walks the tree under path and grants the owner
// write (and, for directories, traverse) permission on every entry.
// Errors are ignored; the follow-up RemoveAll reports anything that is
// still in the way.
func clearWriteProtection(path string) {
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = os.Chmod(p, 0o700)
		} else {
			_ = os.Chmod(p, 0o600)
		}
		return nil
	})
}
