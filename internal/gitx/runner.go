// Package gitx wraps the git binary behind a narrow, structured interface.
//
// The publisher needs exactly six git operations (init, add, commit, remote
// configuration, branch rename, push), and it needs to distinguish soft
// non-zero exits ("nothing to commit") from hard failures. Every operation
// therefore returns a Result carrying the exit status and the captured
// stdout/stderr, instead of folding non-zero exits into Go errors. An error
// is only returned when the command could not run at all, most importantly
// when git is not installed.
//
// We shell out to the git binary rather than using a Go Git implementation
// because pushing must honor the user's existing credential helpers, SSH
// configuration, and transport settings exactly as the git CLI would.
package gitx

import (
	"errors"
	"os/exec"
	"strings"

	"github.com/shinji-kodama/git-flatten/internal/model"
)

// Result is the structured outcome of one git invocation.
type Result struct {
	// ExitCode is the process exit status. Zero means success.
	ExitCode int

	// Stdout is the captured standard output.
	Stdout string

	// Stderr is the captured standard error.
	Stderr string
}

// OK reports whether the invocation exited zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Combined returns the trimmed stdout and stderr joined together. Git
// spreads diagnostics across both streams depending on the subcommand, so
// callers matching message text should look at both.
func (r Result) Combined() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// Runner is the version-control capability consumed by the publisher.
// Implementations run each operation against the repository at dir.
//
// The production implementation is ExecRunner; tests substitute a fake
// that records invocations.
type Runner interface {
	// Init initializes a new repository at dir.
	Init(dir string) (Result, error)

	// AddAll stages every change under dir.
	AddAll(dir string) (Result, error)

	// Commit records the staged changes with the given message.
	Commit(dir, message string) (Result, error)

	// SetRemote points the named remote at url, replacing any existing
	// remote of that name.
	SetRemote(dir, name, url string) (Result, error)

	// RenameBranch renames the current branch to name, creating it if the
	// repository has no commits yet on a named branch.
	RenameBranch(dir, name string) (Result, error)

	// Push pushes branch to remote and sets it as the tracked upstream.
	Push(dir, remote, branch string) (Result, error)
}

// ExecRunner runs git operations by invoking the git executable.
type ExecRunner struct {
	// binary is the executable to invoke, normally "git". Overridable for
	// tests that simulate a missing binary.
	binary string
}

// NewExecRunner creates an ExecRunner that invokes "git" from PATH.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{binary: "git"}
}

// NewExecRunnerWithBinary creates an ExecRunner invoking a specific
// executable.
func NewExecRunnerWithBinary(binary string) *ExecRunner {
	return &ExecRunner{binary: binary}
}

// Init implements Runner.
func (g *ExecRunner) Init(dir string) (Result, error) {
	return g.run(dir, "init")
}

// AddAll implements Runner.
func (g *ExecRunner) AddAll(dir string) (Result, error) {
	return g.run(dir, "add", ".")
}

// Commit implements Runner.
func (g *ExecRunner) Commit(dir, message string) (Result, error) {
	return g.run(dir, "commit", "-m", message)
}

// SetRemote implements Runner. Any existing remote of the same name is
// removed first so a changed URL takes effect; the removal's failure is
// ignored because the remote usually does not exist yet.
func (g *ExecRunner) SetRemote(dir, name, url string) (Result, error) {
	if _, err := g.run(dir, "remote", "remove", name); err != nil {
		return Result{}, err
	}
	return g.run(dir, "remote", "add", name, url)
}

// RenameBranch implements Runner. Uses the forced rename so it also works
// when the target name already exists.
func (g *ExecRunner) RenameBranch(dir, name string) (Result, error) {
	return g.run(dir, "branch", "-M", name)
}

// Push implements Runner. The -u flag establishes the pushed branch as the
// tracked upstream, matching what a user would do by hand on first push.
func (g *ExecRunner) Push(dir, remote, branch string) (Result, error) {
	return g.run(dir, "push", "-u", remote, branch)
}

// run executes one git command in dir and captures its streams.
//
// dir is passed via git's own -C flag instead of exec.Cmd.Dir; -C is
// handled by git before anything else and behaves identically for every
// subcommand. A non-zero exit is reported through Result.ExitCode with a
// nil error. The only errors returned are "binary missing" (wrapped as a
// CLIError with FailGitMissing) and genuinely unexpected start failures.
func (g *ExecRunner) run(dir string, args ...string) (Result, error) {
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204 — arguments are assembled internally, not from user input
	cmd := exec.Command(g.binary, fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return res, model.WrapCLIError(model.FailGitMissing,
				"git is not installed or not on PATH", err)
		}
		return res, err
	}

	return res, nil
}
