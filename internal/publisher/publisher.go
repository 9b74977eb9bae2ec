// Package publisher turns a cleaned directory into a pushed repository.
//
// The publish sequence is a fixed state machine over a single working
// directory:
//
//	EnsureRepo → StageAndCommit → ConfigureRemote → RenameBranch → Push
//
// Each step talks to git through the gitx.Runner capability and inspects
// the structured result, so a soft non-zero exit ("nothing to commit") can
// be absorbed while hard failures abort the remaining steps with an error
// kind naming the step that failed. Cleanup that happened before publishing
// is never undone by a publish failure; the CLI reports both.
package publisher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/git-flatten/internal/gitx"
	"github.com/shinji-kodama/git-flatten/internal/model"
)

// Options configures a Publisher. Empty name fields select the
// conventional defaults (remote "origin", branch "main");
// ReuseTopLevelRepo has no implicit default and must be set by the caller.
type Options struct {
	// RemoteName is the name the remote is (re)configured under.
	RemoteName string

	// Branch is the branch name to rename to and push.
	Branch string

	// ReuseTopLevelRepo controls what EnsureRepo does when the root still
	// has an active .git directory: reuse it (true) or refuse to publish
	// (false), so embedded history is never pushed by accident. A cleanup
	// pass that stripped the root .git makes this moot.
	ReuseTopLevelRepo bool
}

// DefaultRemoteName is the remote name used when Options leaves it empty.
const DefaultRemoteName = "origin"

// DefaultBranch is the branch name used when Options leaves it empty.
const DefaultBranch = "main"

// Publisher orchestrates the publish sequence over a gitx.Runner.
type Publisher struct {
	git  gitx.Runner
	opts Options

	// Logf receives progress messages ("Initialized new repository",
	// "Nothing to commit"). Defaults to a no-op; the CLI wires it to its
	// verbose logger.
	Logf func(format string, args ...any)
}

// New creates a Publisher over the given runner. Empty option fields are
// filled with the package defaults.
func New(git gitx.Runner, opts Options) *Publisher {
	if opts.RemoteName == "" {
		opts.RemoteName = DefaultRemoteName
	}
	if opts.Branch == "" {
		opts.Branch = DefaultBranch
	}
	return &Publisher{
		git:  git,
		opts: opts,
		Logf: func(string, ...any) {},
	}
}

// Branch returns the branch name this publisher pushes.
func (p *Publisher) Branch() string {
	return p.opts.Branch
}

// RemoteName returns the remote name this publisher configures.
func (p *Publisher) RemoteName() string {
	return p.opts.RemoteName
}

// Plan describes the steps a publish would execute, for dry-run output.
// No git invocation happens.
func (p *Publisher) Plan(root, remoteURL, message string) string {
	return fmt.Sprintf(
		"git init (if %s has no repository), add ., commit -m %q, "+
			"remote add %s %s, branch -M %s, push -u %s %s",
		root, message, p.opts.RemoteName, remoteURL,
		p.opts.Branch, p.opts.RemoteName, p.opts.Branch)
}

// Publish runs the full sequence against root, committing with message and
// pushing to remoteURL. It returns nil only when the push succeeded (or
// when there was nothing to commit and the push of the existing state
// succeeded). Errors are CLIErrors whose kind identifies the failed step.
func (p *Publisher) Publish(root, remoteURL, message string) error {
	if err := p.ensureRepo(root); err != nil {
		return err
	}
	if err := p.stageAndCommit(root, message); err != nil {
		return err
	}
	if err := p.configureRemote(root, remoteURL); err != nil {
		return err
	}
	p.renameBranch(root)
	return p.push(root, remoteURL)
}

// ensureRepo initializes a repository at root unless an active one is
// already present. A pre-existing repository is reused or rejected
// according to Options.ReuseTopLevelRepo.
func (p *Publisher) ensureRepo(root string) error {
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		if p.opts.ReuseTopLevelRepo {
			p.Logf("Reusing existing repository at %s", root)
			return nil
		}
		return model.NewCLIError(model.FailInit,
			fmt.Sprintf("a repository already exists at %s; remove it (or enable reuseTopLevelRepo) before publishing", root))
	}

	res, err := p.git.Init(root)
	if err != nil {
		return err
	}
	if !res.OK() {
		return model.NewCLIError(model.FailInit,
			fmt.Sprintf("git init failed: %s", res.Combined()))
	}

	p.Logf("Initialized new repository at %s", root)
	return nil
}

// stageAndCommit stages everything under root and commits it. A commit
// that fails because the working tree is unchanged is treated as success;
// any other commit failure is fatal to the publish.
func (p *Publisher) stageAndCommit(root, message string) error {
	res, err := p.git.AddAll(root)
	if err != nil {
		return err
	}
	if !res.OK() {
		// Staging rarely fails outright (index locks, unreadable files).
		// The original behavior is to report and keep going; the commit
		// below surfaces anything that actually matters.
		p.Logf("git add reported: %s", res.Combined())
	}

	res, err = p.git.Commit(root, message)
	if err != nil {
		return err
	}
	if !res.OK() {
		if strings.Contains(res.Combined(), "nothing to commit") {
			p.Logf("Nothing to commit (working tree clean)")
			return nil
		}
		return model.NewCLIError(model.FailCommit,
			fmt.Sprintf("git commit failed: %s", res.Combined()))
	}

	p.Logf("Committed staged changes")
	return nil
}

// configureRemote points the configured remote name at remoteURL.
func (p *Publisher) configureRemote(root, remoteURL string) error {
	res, err := p.git.SetRemote(root, p.opts.RemoteName, remoteURL)
	if err != nil {
		return err
	}
	if !res.OK() {
		return model.NewCLIError(model.FailRemote,
			fmt.Sprintf("git remote add failed: %s", res.Combined()))
	}
	return nil
}

// renameBranch renames the current branch to the configured name. Failure
// here is deliberately non-fatal: if something is genuinely wrong with the
// repository, the push will fail with a far better diagnostic.
func (p *Publisher) renameBranch(root string) {
	res, err := p.git.RenameBranch(root, p.opts.Branch)
	if err != nil || !res.OK() {
		p.Logf("branch rename to %s did not take effect", p.opts.Branch)
	}
}

// push pushes the configured branch to the configured remote, setting the
// upstream.
func (p *Publisher) push(root, remoteURL string) error {
	res, err := p.git.Push(root, p.opts.RemoteName, p.opts.Branch)
	if err != nil {
		return err
	}
	if !res.OK() {
		return model.NewCLIError(model.FailPush,
			fmt.Sprintf("git push failed: %s", res.Combined()))
	}

	p.Logf("Pushed to %s (branch: %s)", remoteURL, p.opts.Branch)
	return nil
}
