package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestColorFunctions(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string) string
		prefix string
	}{
		{"Green", Green, "\033[32m"},
		{"Yellow", Yellow, "\033[33m"},
		{"Red", Red, "\033[31m"},
		{"Bold", Bold, "\033[1m"},
	}

	orig := colorEnabled
	colorEnabled = true
	defer func() { colorEnabled = orig }()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn("hello")
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("%s should start with %q", tt.name, tt.prefix)
			}
			if !strings.Contains(got, "hello") {
				t.Errorf("%s should contain the input string", tt.name)
			}
			if !strings.HasSuffix(got, "\033[0m") {
				t.Errorf("%s should end with reset code", tt.name)
			}
		})
	}
}

func TestColorDisabled(t *testing.T) {
	orig := colorEnabled
	colorEnabled = false
	defer func() { colorEnabled = orig }()

	if got := Green("hello"); got != "hello" {
		t.Errorf("Green with color disabled = %q, want plain string", got)
	}
	if got := Status("Applied"); got != "Applied" {
		t.Errorf("Status with color disabled = %q, want plain string", got)
	}
}

func TestStatus(t *testing.T) {
	orig := colorEnabled
	colorEnabled = true
	defer func() { colorEnabled = orig }()

	tests := []struct {
		in     string
		prefix string
	}{
		{"Applied", "\033[32m"},
		{"Matched", "\033[32m"},
		{"PartialFailure", "\033[33m"},
		{"Timeout", "\033[33m"},
		{"TransportFailure", "\033[31m"},
		{"Unreachable", "\033[31m"},
	}
	for _, tt := range tests {
		if got := Status(tt.in); !strings.HasPrefix(got, tt.prefix) {
			t.Errorf("Status(%q) = %q, want prefix %q", tt.in, got, tt.prefix)
		}
	}
	if got := Status("skipped"); got != "skipped" {
		t.Errorf("unknown status should pass through, got %q", got)
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "NAME", "ADDRESS")
	tbl.Row("leaf1", "172.80.80.11:22")
	tbl.Row("frr1", "172.80.80.21:2222")
	tbl.Flush()

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "NAME") || !strings.Contains(lines[0], "ADDRESS") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "----") {
		t.Errorf("divider line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "leaf1") || !strings.Contains(lines[2], "172.80.80.11:22") {
		t.Errorf("row = %q", lines[2])
	}

	// Columns align: ADDRESS starts at the same offset on every line.
	col := strings.Index(lines[0], "ADDRESS")
	if got := strings.Index(lines[2], "172.80.80.11:22"); got != col {
		t.Errorf("row 1 address column = %d, want %d", got, col)
	}
	if got := strings.Index(lines[3], "172.80.80.21:2222"); got != col {
		t.Errorf("row 2 address column = %d, want %d", got, col)
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "NAME")
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table should print nothing, got %q", buf.String())
	}
}
