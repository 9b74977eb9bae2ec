// Package scanner discovers version-control marker directories under a root.
//
// The scan is a read-only traversal: it walks the tree once, collects every
// directory whose name matches a configured marker name (.git by default),
// and returns the matches ordered deepest first. The deepest-first ordering
// is what lets the cleaner remove nested repository metadata before touching
// anything closer to the root, avoiding partial-removal races on filesystems
// where deleting a parent invalidates handles held on its children.
//
// Symbolic links are not followed. filepath.WalkDir does not descend into
// symlinked directories, and following links from vendored trees could walk
// out of the root and match metadata the user never asked to delete.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shinji-kodama/git-flatten/internal/model"
)

// Scanner walks a root directory and yields marker directories.
//
// The zero value is not useful; construct one with NewScanner so the
// default marker names are populated.
type Scanner struct {
	// markerNames is the set of directory base names treated as
	// version-control metadata.
	markerNames map[string]bool

	// excludes holds root-relative path prefixes that the walk skips
	// entirely. Matching is component-wise, so "vendor" excludes
	// root/vendor but not root/vendored-tools.
	excludes []string
}

// DefaultMarkerName is the reserved directory name that signals repository
// metadata.
const DefaultMarkerName = ".git"

// NewScanner creates a Scanner for the given marker directory names and
// excluded path prefixes. Passing no marker names selects the default
// (".git"). Exclude prefixes are interpreted relative to the scan root.
func NewScanner(markerNames, excludes []string) *Scanner {
	if len(markerNames) == 0 {
		markerNames = []string{DefaultMarkerName}
	}

	names := make(map[string]bool, len(markerNames))
	for _, n := range markerNames {
		names[n] = true
	}

	return &Scanner{markerNames: names, excludes: excludes}
}

// Scan walks root and returns all marker directories beneath it (including
// root itself, if root's own base name matches), ordered by descending path
// depth. Ties at equal depth are broken lexicographically so repeated scans
// of the same tree produce the same sequence.
//
// The root must exist and be a directory; otherwise a CLIError with
// FailInvalidRoot is returned before any traversal happens. A tree with no
// matches yields an empty slice and no error. Unreadable subtrees are
// skipped rather than aborting the scan, since the cleaner will surface any
// real permission problems when it attempts deletion.
func (s *Scanner) Scan(root string) ([]model.MarkerPath, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, model.WrapCLIError(model.FailInvalidRoot,
			fmt.Sprintf("cannot resolve root path %q", root), err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, model.WrapCLIError(model.FailInvalidRoot,
			fmt.Sprintf("root does not exist: %s", absRoot), err)
	}
	if !info.IsDir() {
		return nil, model.NewCLIError(model.FailInvalidRoot,
			fmt.Sprintf("not a directory: %s", absRoot))
	}

	var markers []model.MarkerPath

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entry. Skip it and keep scanning the rest of
			// the tree; the scan itself must stay side-effect free.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if s.isExcluded(absRoot, path) {
			return filepath.SkipDir
		}

		if s.markerNames[d.Name()] {
			markers = append(markers, model.MarkerPath{
				Path:  path,
				Kind:  model.KindDirectory,
				Depth: model.Depth(path),
			})
			// Nothing inside a marker directory is interesting, and
			// descending into it would only slow large trees down.
			return filepath.SkipDir
		}

		return nil
	})
	if walkErr != nil {
		return nil, model.WrapCLIError(model.FailGeneral,
			fmt.Sprintf("scan of %s failed", absRoot), walkErr)
	}

	sortDeepestFirst(markers)
	return markers, nil
}

// isExcluded reports whether path falls under one of the configured exclude
// prefixes. The comparison is done on root-relative, separator-normalized
// components so exclude entries written with either slash style behave the
// same on every platform.
func (s *Scanner) isExcluded(root, path string) bool {
	if len(s.excludes) == 0 || path == root {
		return false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, ex := range s.excludes {
		ex = strings.Trim(filepath.ToSlash(ex), "/")
		if ex == "" {
			continue
		}
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
	}
	return false
}

// sortDeepestFirst orders markers by descending depth, then by path for a
// deterministic tie-break at equal depth.
func sortDeepestFirst(markers []model.MarkerPath) {
	sort.Slice(markers, func(i, j int) bool {
		if markers[i].Depth != markers[j].Depth {
			return markers[i].Depth > markers[j].Depth
		}
		return markers[i].Path < markers[j].Path
	})
}
