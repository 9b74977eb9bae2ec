//go:build windows

package cleaner

import (
	"context"
	"os/exec"
	"time"
)

// forceRemoveTimeout bounds the wait on the native delete command. A hung
// `rd` (an antivirus or sync client holding handles open indefinitely)
// must not wedge the whole run.
const forceRemoveTimeout = 30 * time.Second

// forceRemove is the last-resort delete on Windows. Repository directories
// are frequently held open by indexers, OneDrive, or git itself, in ways
// that make os.RemoveAll fail even after write protection is cleared. The
// native `rd /s /q` command copes with several of these sharing-violation
// cases, so shell out to it before giving up.
func forceRemove(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), forceRemoveTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "cmd", "/c", "rd", "/s", "/q", path)
	return cmd.Run()
}
