package cli

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// Progress shows a spinner while something slow happens. The zero value
// and quiet progress are no-ops.
type Progress struct {
	s *spinner.Spinner
}

// StartProgress starts a spinner with message on w unless quiet.
func StartProgress(w io.Writer, message string, quiet bool) *Progress {
	if quiet {
		return &Progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	s.Start()
	return &Progress{s: s}
}

// Stop removes the spinner. finalMsg, if set, is printed in its place.
func (p *Progress) Stop(finalMsg string) {
	if p == nil || p.s == nil {
		return
	}
	if finalMsg != "" {
		p.s.FinalMSG = finalMsg + "\n"
	}
	p.s.Stop()
}
