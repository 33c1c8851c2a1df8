// Package configdiff compares device configurations as unified diffs.
//
// Lines every vendor rewrites on each dump (change timestamps, byte counts,
// banner comments) are dropped before comparing unless WithVolatileLines is
// set, so two dumps of an unchanged device compare equal.
package configdiff

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const defaultContext = 3

const (
	ansiReset = "\x1b[0m"
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiCyan  = "\x1b[36m"
)

// volatile matches lines that change between dumps of the same config
var volatile = []*regexp.Regexp{
	regexp.MustCompile(`^Building configuration\.\.\.$`),
	regexp.MustCompile(`^Current configuration : \d+ bytes$`),
	regexp.MustCompile(`^! (Last configuration change|NVRAM config last updated) at `),
	regexp.MustCompile(`^## Last (commit|changed): `),
	regexp.MustCompile(`^# \w{3}/\d{2}/\d{4} \d{2}:\d{2}:\d{2} by RouterOS`),
	regexp.MustCompile(`^# \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} by RouterOS`),
}

// Source is one side of a comparison
type Source struct {
	Name string
	Text string
}

type options struct {
	context      int
	keepVolatile bool
}

// Option configures a comparison
type Option func(*options)

// WithContext sets the number of unchanged lines shown around each change
func WithContext(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.context = n
		}
	}
}

// WithVolatileLines keeps timestamp and size banner lines in the comparison
func WithVolatileLines() Option {
	return func(o *options) {
		o.keepVolatile = true
	}
}

// Unified returns the unified diff from one configuration to another. Equal
// configurations produce an empty string.
func Unified(from, to Source, opts ...Option) (string, error) {
	o := options{context: defaultContext}
	for _, opt := range opts {
		opt(&o)
	}

	diff := difflib.UnifiedDiff{
		A:        lines(from.Text, o.keepVolatile),
		B:        lines(to.Text, o.keepVolatile),
		FromFile: from.Name,
		ToFile:   to.Name,
		Context:  o.context,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s and %s: %w", from.Name, to.Name, err)
	}
	return text, nil
}

// Normalize returns the configuration as it is compared: CRLF and trailing
// blanks stripped and volatile lines removed
func Normalize(text string) string {
	return strings.Join(lines(text, false), "")
}

func lines(text string, keepVolatile bool) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}

	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, " \t\r")
		if !keepVolatile && isVolatile(line) {
			continue
		}
		out = append(out, line+"\n")
	}
	return out
}

func isVolatile(line string) bool {
	for _, re := range volatile {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Stats counts changed lines in a unified diff
type Stats struct {
	Added   int
	Removed int
}

// Changed reports whether the diff holds any change
func (s Stats) Changed() bool {
	return s.Added > 0 || s.Removed > 0
}

// Summarize counts the added and removed lines of a unified diff
func Summarize(diff string) Stats {
	var s Stats
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			s.Added++
		case strings.HasPrefix(line, "-"):
			s.Removed++
		}
	}
	return s
}

// Colorize wraps diff lines in ANSI colors for a terminal
func Colorize(diff string) string {
	if diff == "" {
		return ""
	}
	var b strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		body := strings.TrimSuffix(line, "\n")
		color := ""
		switch {
		case strings.HasPrefix(body, "@@"), strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
			color = ansiCyan
		case strings.HasPrefix(body, "+"):
			color = ansiGreen
		case strings.HasPrefix(body, "-"):
			color = ansiRed
		}
		if color == "" {
			b.WriteString(line)
			continue
		}
		b.WriteString(color + body + ansiReset)
		if strings.HasSuffix(line, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}
