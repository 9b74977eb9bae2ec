//go:build !windows

package cleaner

import "os"

// forceRemove is the last-resort delete on Unix-like systems. The
// permission-clearing retry in removeDir already covers read-only entries,
// so there is no stronger primitive to reach for here; one more RemoveAll
// only papers over transient races (e.g. a file created between the chmod
// walk and the retry).
func forceRemove(path string) error {
	return os.RemoveAll(path)
}
