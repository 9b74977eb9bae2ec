// Package cli — progress.go wraps long-running steps (the publish, in practice) in a
// terminal spinner with a pass/fail marker. In JSON mode the spinner is
// suppressed entirely so stdout stays machine-parseable.
package cli

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// spinnerCharSet indexes spinner.CharSets; 14 is the braille-dot set.
const spinnerCharSet = 14

// runStep executes fn under a spinner titled with title. On completion the
// spinner line is replaced by a check or cross marker. The function's error
// is returned unchanged; the caller decides whether it is fatal.
func runStep(title string, fn func() error) error {
	if jsonOutput {
		return fn()
	}

	s := spinner.New(spinner.CharSets[spinnerCharSet], 100*time.Millisecond)
	s.Suffix = " " + title
	s.Start()

	err := fn()

	if err != nil {
		s.FinalMSG = color.RedString("✖"+s.Suffix) + "\n"
	} else {
		s.FinalMSG = color.GreenString("✔"+s.Suffix) + "\n"
	}
	s.Stop()

	return err
}
