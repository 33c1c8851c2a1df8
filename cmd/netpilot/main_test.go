package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseGlobal(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantName string
		wantArgs []string
		wantJSON bool
		wantCfg  string
		wantErr  error
	}{
		{
			name:     "command with args",
			args:     []string{"show", "version", "r1"},
			wantName: "show",
			wantArgs: []string{"version", "r1"},
		},
		{
			name:     "global flags before command",
			args:     []string{"-json", "-config", "/tmp/np.yaml", "devices", "list"},
			wantName: "devices",
			wantArgs: []string{"list"},
			wantJSON: true,
			wantCfg:  "/tmp/np.yaml",
		},
		{
			name:     "command flags left alone",
			args:     []string{"mass", "-vendor", "cisco_ios", "show clock"},
			wantName: "mass",
			wantArgs: []string{"-vendor", "cisco_ios", "show clock"},
		},
		{
			name:    "no command",
			args:    nil,
			wantErr: errShowUsage,
		},
		{
			name:    "help flag",
			args:    []string{"-h"},
			wantErr: errShowUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, name, args, err := parseGlobal(tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if strings.Join(args, "|") != strings.Join(tt.wantArgs, "|") {
				t.Errorf("args = %q, want %q", args, tt.wantArgs)
			}
			if g.jsonOutput != tt.wantJSON {
				t.Errorf("jsonOutput = %v, want %v", g.jsonOutput, tt.wantJSON)
			}
			if g.configPath != tt.wantCfg {
				t.Errorf("configPath = %q, want %q", g.configPath, tt.wantCfg)
			}
		})
	}
}

func TestParseGlobalUnknownFlag(t *testing.T) {
	if _, _, _, err := parseGlobal([]string{"-nope", "devices"}); err == nil {
		t.Fatal("expected an error for an unknown global flag")
	}
}

func TestCommandNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range commands() {
		if seen[c.name] {
			t.Errorf("duplicate command %q", c.name)
		}
		seen[c.name] = true
		if c.run == nil {
			t.Errorf("command %q has no handler", c.name)
		}
	}
}

func TestVarsFlag(t *testing.T) {
	v := varsFlag{}
	for _, s := range []string{"vlan=10", " name =users", "empty="} {
		if err := v.Set(s); err != nil {
			t.Fatalf("Set(%q): %v", s, err)
		}
	}
	if got, want := v.String(), "empty=,name=users,vlan=10"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	for _, bad := range []string{"novalue", "=x", "  =x"} {
		if err := v.Set(bad); err == nil {
			t.Errorf("Set(%q) should fail", bad)
		}
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	renderTable(&buf, []string{"NAME", "VENDOR"}, [][]string{
		{"core-1", "cisco_ios"},
		{"r2", "juniper_junos"},
	})

	want := "NAME    VENDOR\n" +
		"------  -------------\n" +
		"core-1  cisco_ios\n" +
		"r2      juniper_junos\n"
	if buf.String() != want {
		t.Errorf("table:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPlural(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 lines"},
		{1, "1 line"},
		{7, "7 lines"},
	}
	for _, tt := range tests {
		if got := plural(tt.n, "line"); got != tt.want {
			t.Errorf("plural(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	out := &output{w: &buf, json: true}
	if err := out.print(map[string]int{"n": 1}, nil); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "{\n  \"n\": 1\n}\n"; got != want {
		t.Errorf("json = %q, want %q", got, want)
	}
}
