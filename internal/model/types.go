// Package model defines the domain types shared across the git-flatten CLI.
//
// The tool is stateless between invocations: the only data that flows through
// it are filesystem paths discovered during a scan, the results of invoking
// the git binary, and the aggregate report printed at the end of a run.
// These types are the common vocabulary between the scanner, cleaner,
// publisher, and CLI layers.
package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MarkerKind distinguishes the two shapes of version-control metadata that
// the tool removes: a single configuration file (.gitmodules) directly under
// the root, and nested repository directories (.git) anywhere below it.
type MarkerKind string

const (
	// KindFile is a marker configuration file, such as .gitmodules.
	KindFile MarkerKind = "file"

	// KindDirectory is a marker metadata directory, such as .git.
	KindDirectory MarkerKind = "directory"
)

// String returns the string representation of MarkerKind.
func (k MarkerKind) String() string {
	return string(k)
}

// IsValid checks whether the MarkerKind value is one of the predefined kinds.
func (k MarkerKind) IsValid() bool {
	switch k {
	case KindFile, KindDirectory:
		return true
	default:
		return false
	}
}

// MarkerPath is a filesystem path identified as version-control metadata
// targeted for removal. Marker paths are discovered during a scan, deleted
// during the same run, and never persisted.
type MarkerPath struct {
	// Path is the absolute filesystem path of the marker.
	Path string `json:"path"`

	// Kind indicates whether the marker is a file or a directory.
	Kind MarkerKind `json:"kind"`

	// Depth is the number of path separators in the cleaned absolute path.
	// The cleaner relies on markers being ordered by descending depth so
	// that nested entries are always processed before their ancestors.
	Depth int `json:"depth"`
}

// Depth computes the marker depth for an absolute path: the number of
// separator-delimited components below the filesystem root. Callers must
// pass paths produced by filepath.Abs so that depths are comparable within
// a single scan.
func Depth(absPath string) int {
	return strings.Count(filepath.Clean(absPath), string(filepath.Separator))
}

// RunReport is the aggregate outcome of a single run. It is produced by the
// CLI after cleanup (and optional publishing) completes, printed as text or
// JSON, and then discarded when the process exits.
type RunReport struct {
	// Root is the resolved absolute path the run operated on.
	Root string `json:"root"`

	// DryRun indicates that destructive and publishing actions were
	// simulated rather than executed.
	DryRun bool `json:"dryRun"`

	// FilesRemoved is the number of marker files deleted under root.
	FilesRemoved int `json:"filesRemoved"`

	// DirsRemoved is the number of marker directories deleted (or, in
	// dry-run mode, that would have been deleted).
	DirsRemoved int `json:"dirsRemoved"`

	// Failures is the number of marker entries that could not be removed
	// even after the permission-clearing retry and the platform fallback.
	Failures int `json:"failures"`

	// Published indicates that the publish sequence ran to completion.
	Published bool `json:"published"`

	// Remote is the remote URL that was pushed to, when publishing ran.
	Remote string `json:"remote,omitempty"`

	// Branch is the branch name that was pushed, when publishing ran.
	Branch string `json:"branch,omitempty"`
}

// FailureKind classifies the error taxonomy of the tool. Per-entry cleanup
// failures are absorbed and never carry a FailureKind; a kind is only
// attached to errors that abort a phase of the run.
type FailureKind string

const (
	// FailGeneral is an unspecified error.
	FailGeneral FailureKind = "general"

	// FailInvalidRoot means the root path is missing or not a directory.
	// Reported before any mutation takes place.
	FailInvalidRoot FailureKind = "invalid-root"

	// FailGitMissing means the git binary could not be located on PATH.
	FailGitMissing FailureKind = "git-missing"

	// FailInit means repository initialization failed during publish.
	FailInit FailureKind = "init"

	// FailCommit means committing failed during publish for a reason other
	// than an unchanged working tree.
	FailCommit FailureKind = "commit"

	// FailRemote means the remote could not be (re)configured.
	FailRemote FailureKind = "remote"

	// FailPush means the final push was rejected or could not reach the
	// remote (auth failure, network failure, non-fast-forward rejection).
	FailPush FailureKind = "push"
)

// CLIError is the error type that crosses package boundaries on fatal paths.
// It carries a FailureKind so the CLI layer can report which phase failed,
// while the process exit code keeps the conventional 0/1 contract.
type CLIError struct {
	// Kind classifies which phase of the run failed.
	Kind FailureKind

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with the given kind and message.
func NewCLIError(kind FailureKind, message string) *CLIError {
	return &CLIError{Kind: kind, Message: message}
}

// WrapCLIError creates a CLIError that wraps an existing error.
func WrapCLIError(kind FailureKind, message string, err error) *CLIError {
	return &CLIError{Kind: kind, Message: message, Err: err}
}
