package main

import (
	"fmt"
	"io"
	"os"

	"netpilot/internal/orchestrator"
)

// progressPrinter draws a one-line counter on stderr
type progressPrinter struct {
	label   string
	w       io.Writer
	enabled bool
	printed bool
}

func newProgressPrinter(label string, quiet bool) *progressPrinter {
	return &progressPrinter{label: label, w: os.Stderr, enabled: !quiet}
}

func (p *progressPrinter) update(pr orchestrator.Progress) {
	if !p.enabled {
		return
	}
	fmt.Fprintf(p.w, "\r%s: %d/%d (%3.0f%%)", p.label, pr.Completed, pr.Total, pr.Fraction()*100)
	p.printed = true
}

func (p *progressPrinter) done() {
	if p.printed {
		fmt.Fprintln(p.w)
	}
}
