package util

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLogLevelAndOutput(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	if err := SetLogLevel("warn"); err != nil {
		t.Fatalf("SetLogLevel: %v", err)
	}
	defer SetLogLevel("info")

	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	Warnf("shown %d", 3)
	Errorf("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-threshold messages were logged:\n%s", out)
	}
	if !strings.Contains(out, "shown 3") || !strings.Contains(out, "shown 4") {
		t.Errorf("warn/error messages missing:\n%s", out)
	}

	if err := SetLogLevel("nonsense"); err == nil {
		t.Error("invalid level should be rejected")
	}
}

func TestFieldHelpers(t *testing.T) {
	if got := WithTarget("leaf1").Data["target"]; got != "leaf1" {
		t.Errorf("WithTarget field = %v", got)
	}
	if got := WithBundle("baseline").Data["bundle"]; got != "baseline" {
		t.Errorf("WithBundle field = %v", got)
	}
	if got := WithProbe("bgp-up").Data["probe"]; got != "bgp-up" {
		t.Errorf("WithProbe field = %v", got)
	}
	if got := WithSession("abc123").Data["session"]; got != "abc123" {
		t.Errorf("WithSession field = %v", got)
	}
}
