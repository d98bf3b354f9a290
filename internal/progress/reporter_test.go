package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewReporterCI(t *testing.T) {
	t.Setenv("CI", "true")
	var buf bytes.Buffer

	r := NewReporter("Replaying", &buf)
	if _, ok := r.(*LineReporter); !ok {
		t.Fatalf("expected *LineReporter under CI, got %T", r)
	}

	r.Start(2)
	r.Update(1, "a.json 200")
	r.Update(2, "b.json 403")
	r.Finish()

	out := buf.String()
	for _, want := range []string{"Replaying: 2", "[1/2] a.json 200", "[2/2] b.json 403", "Replaying: done"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestNewReporterTerminal(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	var buf bytes.Buffer

	r := NewReporter("Replaying", &buf)
	if _, ok := r.(*TerminalReporter); !ok {
		t.Fatalf("expected *TerminalReporter, got %T", r)
	}
	r.Start(1)
	r.Update(1, "a.json")
	r.Finish()
}

func TestTerminalReporterUpdateBeforeStart(t *testing.T) {
	r := &TerminalReporter{}
	r.Update(1, "ignored")
	r.Finish()
}
