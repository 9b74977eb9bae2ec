package gitx

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/git-flatten/internal/model"
)

// runTestGit runs a raw git command for test setup/verification, failing
// the test on a non-zero exit.
func runTestGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
	return string(output)
}

// setupCommittableRepo initializes a repository with a local identity so
// commits work in environments without global git configuration.
func setupCommittableRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	runTestGit(t, dir, "init")
	runTestGit(t, dir, "config", "user.email", "test@example.com")
	runTestGit(t, dir, "config", "user.name", "Test User")
	return dir
}

// TestInitCreatesRepository verifies that Init produces a .git directory
// and a zero exit.
func TestInitCreatesRepository(t *testing.T) {
	dir := t.TempDir()
	g := NewExecRunner()

	res, err := g.Init(dir)
	require.NoError(t, err)
	assert.True(t, res.OK(), "init should exit zero: %s", res.Combined())
	assert.DirExists(t, filepath.Join(dir, ".git"))
}

// TestAddAllAndCommit verifies the stage-then-commit flow against a real
// repository.
func TestAddAllAndCommit(t *testing.T) {
	dir := setupCommittableRepo(t)
	g := NewExecRunner()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("hello\n"), 0o644))

	res, err := g.AddAll(dir)
	require.NoError(t, err)
	assert.True(t, res.OK())

	res, err = g.Commit(dir, "first commit")
	require.NoError(t, err)
	assert.True(t, res.OK(), "commit should succeed: %s", res.Combined())

	log := runTestGit(t, dir, "log", "--oneline")
	assert.Contains(t, log, "first commit")
}

// TestCommitNothingToCommit verifies that committing an unchanged tree
// yields a non-zero exit with the recognizable message in the output,
// rather than a Go error. This is the soft-failure case the publisher
// must be able to detect.
func TestCommitNothingToCommit(t *testing.T) {
	dir := setupCommittableRepo(t)
	g := NewExecRunner()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("hello\n"), 0o644))
	_, err := g.AddAll(dir)
	require.NoError(t, err)
	_, err = g.Commit(dir, "first")
	require.NoError(t, err)

	// Second commit with no changes staged.
	res, err := g.Commit(dir, "second")
	require.NoError(t, err, "a non-zero exit must not surface as a Go error")
	assert.False(t, res.OK())
	assert.Contains(t, res.Combined(), "nothing to commit")
}

// TestSetRemoteReplacesExisting verifies that SetRemote works both when no
// remote exists and when one already points elsewhere.
func TestSetRemoteReplacesExisting(t *testing.T) {
	dir := setupCommittableRepo(t)
	g := NewExecRunner()

	res, err := g.SetRemote(dir, "origin", "https://example.com/old.git")
	require.NoError(t, err)
	require.True(t, res.OK(), "adding a fresh remote should succeed: %s", res.Combined())

	res, err = g.SetRemote(dir, "origin", "https://example.com/new.git")
	require.NoError(t, err)
	require.True(t, res.OK(), "replacing an existing remote should succeed: %s", res.Combined())

	url := runTestGit(t, dir, "remote", "get-url", "origin")
	assert.Contains(t, url, "https://example.com/new.git")
}

// TestRenameBranch verifies that the current branch ends up with the
// requested name.
func TestRenameBranch(t *testing.T) {
	dir := setupCommittableRepo(t)
	g := NewExecRunner()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644))
	_, err := g.AddAll(dir)
	require.NoError(t, err)
	_, err = g.Commit(dir, "init")
	require.NoError(t, err)

	res, err := g.RenameBranch(dir, "main")
	require.NoError(t, err)
	assert.True(t, res.OK(), "branch rename should succeed: %s", res.Combined())

	branch := runTestGit(t, dir, "branch", "--show-current")
	assert.Contains(t, branch, "main")
}

// TestPushToLocalBareRemote verifies a full push round-trip against a bare
// repository on the local filesystem, avoiding any network dependency.
func TestPushToLocalBareRemote(t *testing.T) {
	remote := t.TempDir()
	runTestGit(t, remote, "init", "--bare")

	dir := setupCommittableRepo(t)
	g := NewExecRunner()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644))
	_, err := g.AddAll(dir)
	require.NoError(t, err)
	_, err = g.Commit(dir, "init")
	require.NoError(t, err)
	_, err = g.RenameBranch(dir, "main")
	require.NoError(t, err)
	_, err = g.SetRemote(dir, "origin", remote)
	require.NoError(t, err)

	res, err := g.Push(dir, "origin", "main")
	require.NoError(t, err)
	assert.True(t, res.OK(), "push to a local bare remote should succeed: %s", res.Combined())

	refs := runTestGit(t, remote, "branch")
	assert.Contains(t, refs, "main")
}

// TestPushFailureIsSoft verifies that a push to an unreachable remote is
// reported through the exit code, not a Go error.
func TestPushFailureIsSoft(t *testing.T) {
	dir := setupCommittableRepo(t)
	g := NewExecRunner()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644))
	_, err := g.AddAll(dir)
	require.NoError(t, err)
	_, err = g.Commit(dir, "init")
	require.NoError(t, err)

	missing := filepath.Join(t.TempDir(), "no-such-repo")
	_, err = g.SetRemote(dir, "origin", missing)
	require.NoError(t, err)

	res, err := g.Push(dir, "origin", "main")
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.NotEmpty(t, res.Stderr)
}

// TestMissingBinary verifies that an absent git executable surfaces as a
// CLIError with the git-missing kind.
func TestMissingBinary(t *testing.T) {
	g := NewExecRunnerWithBinary("definitely-not-a-real-git-binary")

	_, err := g.Init(t.TempDir())
	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.FailGitMissing, cliErr.Kind)
}
