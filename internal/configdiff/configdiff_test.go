package configdiff

import (
	"strings"
	"testing"
)

const running = `Building configuration...

Current configuration : 1432 bytes
! Last configuration change at 10:14:02 UTC Mon Mar 4 2024
hostname r1
interface Gi0/1
 shutdown
`

const saved = "Building configuration...\r\n\r\nCurrent configuration : 1388 bytes\r\nhostname r1\r\ninterface Gi0/1\r\n no shutdown\r\n"

func TestUnified(t *testing.T) {
	got, err := Unified(Source{Name: "r1 running", Text: running}, Source{Name: "r1.cfg", Text: saved})
	if err != nil {
		t.Fatalf("Unified() error = %v", err)
	}

	want := "--- r1 running\n" +
		"+++ r1.cfg\n" +
		"@@ -1,4 +1,4 @@\n" +
		" \n" +
		" hostname r1\n" +
		" interface Gi0/1\n" +
		"- shutdown\n" +
		"+ no shutdown\n"
	if got != want {
		t.Errorf("Unified() =\n%s\nwant\n%s", got, want)
	}
}

func TestUnifiedEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{name: "identical", a: "hostname r1\n", b: "hostname r1\n"},
		{name: "line endings", a: "hostname r1\nip routing\n", b: "hostname r1\r\nip routing\r\n\r\n"},
		{name: "trailing blanks", a: "hostname r1  \n", b: "hostname r1"},
		{name: "junos commit banner", a: "## Last commit: 2024-03-04 10:00:00 UTC by admin\nversion 21.4;\n", b: "## Last commit: 2024-05-01 08:30:00 UTC by ops\nversion 21.4;\n"},
		{name: "routeros export banner", a: "# mar/04/2024 10:00:00 by RouterOS 7.12\n/interface bridge\n", b: "# 2024-05-01 08:30:00 by RouterOS 7.14\n/interface bridge\n"},
		{name: "both empty", a: "", b: "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unified(Source{Name: "a", Text: tt.a}, Source{Name: "b", Text: tt.b})
			if err != nil {
				t.Fatalf("Unified() error = %v", err)
			}
			if got != "" {
				t.Errorf("Unified() = %q, want no diff", got)
			}
		})
	}
}

func TestUnifiedKeepsVolatileLines(t *testing.T) {
	a := "Current configuration : 10 bytes\nhostname r1\n"
	b := "Current configuration : 12 bytes\nhostname r1\n"

	got, err := Unified(Source{Name: "a", Text: a}, Source{Name: "b", Text: b}, WithVolatileLines(), WithContext(0))
	if err != nil {
		t.Fatalf("Unified() error = %v", err)
	}
	want := "--- a\n+++ b\n@@ -1 +1 @@\n-Current configuration : 10 bytes\n+Current configuration : 12 bytes\n"
	if got != want {
		t.Errorf("Unified() = %q, want %q", got, want)
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(running)
	want := "\nhostname r1\ninterface Gi0/1\n shutdown\n"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestSummarize(t *testing.T) {
	diff := "--- a\n+++ b\n@@ -1,3 +1,4 @@\n keep\n-old\n+new\n+extra\n"
	got := Summarize(diff)
	if got.Added != 2 || got.Removed != 1 {
		t.Errorf("Summarize() = %+v, want 2 added 1 removed", got)
	}
	if !got.Changed() {
		t.Error("Changed() = false")
	}
	if Summarize("").Changed() {
		t.Error("empty diff reported as changed")
	}
}

func TestColorize(t *testing.T) {
	diff := "--- a\n+++ b\n@@ -1,2 +1,2 @@\n keep\n-old\n+new\n"
	got := Colorize(diff)

	for _, want := range []string{
		ansiCyan + "--- a" + ansiReset + "\n",
		ansiCyan + "@@ -1,2 +1,2 @@" + ansiReset + "\n",
		"\n keep\n",
		ansiRed + "-old" + ansiReset + "\n",
		ansiGreen + "+new" + ansiReset + "\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Colorize() missing %q in %q", want, got)
		}
	}
	if Colorize("") != "" {
		t.Error("Colorize(\"\") should be empty")
	}
}
