package cleaner

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/git-flatten/internal/model"
	"github.com/shinji-kodama/git-flatten/internal/scanner"
)

// buildMarkerTree creates a root with a .gitmodules file and marker
// directories at depths 1, 2, and 3, each containing a dummy file so the
// recursive delete has real work to do. Returns the root path.
func buildMarkerTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitmodules"),
		[]byte("[submodule \"lib\"]\n\tpath = lib\n"), 0o644))

	for _, dir := range []string{
		filepath.Join(root, ".git"),
		filepath.Join(root, "lib", ".git"),
		filepath.Join(root, "lib", "nested", ".git"),
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "objects"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "HEAD"),
			[]byte("ref: refs/heads/main\n"), 0o644))
	}

	return root
}

// snapshotTree returns every path under root, for before/after comparisons
// in the dry-run test.
func snapshotTree(t *testing.T, root string) []string {
	t.Helper()
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, p)
		return nil
	})
	require.NoError(t, err)
	return paths
}

func scanMarkers(t *testing.T, root string) []model.MarkerPath {
	t.Helper()
	markers, err := scanner.NewScanner(nil, nil).Scan(root)
	require.NoError(t, err)
	return markers
}

// TestRemoveMarkerTree runs the canonical scenario: a root with .gitmodules
// and three nested marker directories is cleaned in one pass, the file is
// gone, and exactly three directories are reported removed with the
// deepest entry processed first.
func TestRemoveMarkerTree(t *testing.T) {
	root := buildMarkerTree(t)
	r := NewRemover()

	fileOutcomes := r.RemoveMarkerFiles(root, nil, false)
	require.Len(t, fileOutcomes, 1)
	assert.True(t, fileOutcomes[0].Removed)
	assert.NoFileExists(t, filepath.Join(root, ".gitmodules"))

	markers := scanMarkers(t, root)
	require.Len(t, markers, 3)

	outcomes := r.RemoveMarkerDirs(markers, false)
	assert.Equal(t, 3, Removed(outcomes))
	assert.Equal(t, 0, Failed(outcomes))

	// The depth-3 entry must have been processed before the depth-1 entry.
	assert.Equal(t, filepath.Join(root, "lib", "nested", ".git"), outcomes[0].Marker.Path)
	assert.Equal(t, filepath.Join(root, ".git"), outcomes[2].Marker.Path)

	for _, o := range outcomes {
		assert.NoDirExists(t, o.Marker.Path)
	}

	// The surrounding content survives.
	assert.DirExists(t, filepath.Join(root, "lib", "nested"))
}

// TestRemoveIsIdempotent verifies that a second cleanup pass over an
// already-clean tree removes nothing and reports no failures.
func TestRemoveIsIdempotent(t *testing.T) {
	root := buildMarkerTree(t)
	r := NewRemover()

	r.RemoveMarkerFiles(root, nil, false)
	r.RemoveMarkerDirs(scanMarkers(t, root), false)

	// Second run: nothing left to find, nothing left to delete.
	again := r.RemoveMarkerFiles(root, nil, false)
	assert.Empty(t, again)

	markers := scanMarkers(t, root)
	assert.Empty(t, markers)
	assert.Equal(t, 0, Removed(r.RemoveMarkerDirs(markers, false)))
}

// TestDryRunDoesNotMutate verifies that dry-run mode counts every marker as
// removed while leaving the tree byte-for-byte identical.
func TestDryRunDoesNotMutate(t *testing.T) {
	root := buildMarkerTree(t)
	before := snapshotTree(t, root)

	r := NewRemover()

	fileOutcomes := r.RemoveMarkerFiles(root, nil, true)
	require.Len(t, fileOutcomes, 1)
	assert.True(t, fileOutcomes[0].Removed)
	assert.True(t, fileOutcomes[0].DryRun)

	outcomes := r.RemoveMarkerDirs(scanMarkers(t, root), true)
	assert.Equal(t, 3, Removed(outcomes))
	for _, o := range outcomes {
		assert.True(t, o.DryRun)
		assert.NoError(t, o.Err)
	}

	after := snapshotTree(t, root)
	assert.Equal(t, before, after, "dry-run must not change the tree")
}

// TestRemoveReadOnlyEntries verifies the permission-clearing retry: marker
// directories containing read-only files and directories (the shape of a
// real .git objects store) are still removed.
func TestRemoveReadOnlyEntries(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits behave differently on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permission bits")
	}

	root := t.TempDir()
	gitDir := filepath.Join(root, "repo", ".git")
	objects := filepath.Join(gitDir, "objects", "ab")
	require.NoError(t, os.MkdirAll(objects, 0o755))

	packed := filepath.Join(objects, "cdef0123")
	require.NoError(t, os.WriteFile(packed, []byte("blob"), 0o444))
	// Lock the directory itself so the unlink inside it fails too.
	require.NoError(t, os.Chmod(objects, 0o555))

	r := NewRemover()
	outcomes := r.RemoveMarkerDirs(scanMarkers(t, root), false)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Removed, "read-only entries must be removed after the retry")
	assert.True(t, outcomes[0].Forced, "the retry path should have been taken")
	assert.NoDirExists(t, gitDir)
}

// TestRemoveContinuesPastFailures verifies that one unremovable entry does
// not stop the batch: remaining markers are still removed and the failure
// is reported in its outcome.
func TestRemoveContinuesPastFailures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits behave differently on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permission bits")
	}

	root := t.TempDir()

	blockedParent := filepath.Join(root, "a-blocked")
	blocked := filepath.Join(blockedParent, ".git")
	require.NoError(t, os.MkdirAll(blocked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked, "HEAD"), []byte("x"), 0o644))

	removable := filepath.Join(root, "b-clean", ".git")
	require.NoError(t, os.MkdirAll(removable, 0o755))

	markers := scanMarkers(t, root)
	require.Len(t, markers, 2)

	// Deny write on the parent so the blocked marker cannot be unlinked.
	// The cleaner only chmods entries inside the marker tree, never the
	// parent, so this failure survives every fallback stage.
	require.NoError(t, os.Chmod(blockedParent, 0o555))
	t.Cleanup(func() { _ = os.Chmod(blockedParent, 0o755) })

	r := NewRemover()
	outcomes := r.RemoveMarkerDirs(markers, false)

	assert.Equal(t, 1, Removed(outcomes))
	assert.Equal(t, 1, Failed(outcomes))
	assert.NoDirExists(t, removable)
	assert.DirExists(t, blocked)
}

// TestRemoveMarkerFileOnlyAtTopLevel verifies that nested .gitmodules files
// are left alone.
func TestRemoveMarkerFileOnlyAtTopLevel(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, ".gitmodules"), []byte("x"), 0o644))

	r := NewRemover()
	outcomes := r.RemoveMarkerFiles(root, nil, false)

	assert.Empty(t, outcomes)
	assert.FileExists(t, filepath.Join(nested, ".gitmodules"))
}
