package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseToolArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKey string
		wantNil bool
		wantErr bool
	}{
		{name: "empty means no arguments", raw: "", wantNil: true},
		{name: "simple object", raw: `{"message": "hello"}`, wantKey: "message"},
		{name: "nested object", raw: `{"filter": {"kind": "a"}}`, wantKey: "filter"},
		{name: "not json", raw: "message=hello", wantErr: true},
		{name: "json array", raw: `["a", "b"]`, wantErr: true},
		{name: "json scalar", raw: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToolArgs(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseToolArgs(%q) error = nil, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseToolArgs(%q) unexpected error: %v", tt.raw, err)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("parseToolArgs(%q) = %v, want nil", tt.raw, got)
				}
				return
			}
			if _, ok := got[tt.wantKey]; !ok {
				t.Errorf("parseToolArgs(%q) missing key %q", tt.raw, tt.wantKey)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"version"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "mcpauth") {
		t.Errorf("version output = %q, want it to mention mcpauth", out.String())
	}
}

func TestRootHelpListsCommands(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--help"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	for _, sub := range []string{"token", "tools", "call", "version"} {
		if !strings.Contains(out.String(), sub) {
			t.Errorf("help output missing %q subcommand", sub)
		}
	}
}
