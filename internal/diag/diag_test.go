package diag

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Severity: SeverityWarning, Message: "cannot merge"}
	if got, want := d.String(), "warning: cannot merge"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}

	// Context keys render sorted so output is stable.
	d = Diagnostic{
		Severity: SeverityError,
		Message:  "bad table",
		Context:  map[string]any{"table": "users", "op": "Feed", "site": "posts"},
	}
	if got, want := d.String(), "error: bad table op=Feed site=posts table=users"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := &ConsoleSink{Logger: log.New(&buf, "", 0)}

	sink.Report(Diagnostic{Severity: SeverityError, Message: "boom"})

	got := buf.String()
	if !strings.HasPrefix(got, Tag) {
		t.Fatalf("output %q does not start with %q", got, Tag)
	}
	if !strings.Contains(got, "error: boom") {
		t.Fatalf("output %q missing rendered diagnostic", got)
	}
}

func TestCollector(t *testing.T) {
	c := &Collector{}
	c.Report(Diagnostic{Severity: SeverityError, Message: "e1"})
	c.Report(Diagnostic{Severity: SeverityWarning, Message: "w1"})
	c.Report(Diagnostic{Severity: SeverityWarning, Message: "w2"})

	if n := c.Count(SeverityError); n != 1 {
		t.Fatalf("Count(error) = %d, want 1", n)
	}
	if n := c.Count(SeverityWarning); n != 2 {
		t.Fatalf("Count(warning) = %d, want 2", n)
	}

	all := c.All()
	if len(all) != 3 {
		t.Fatalf("All() = %d diagnostics, want 3", len(all))
	}

	// All returns a copy, not the live slice.
	all[0].Message = "mutated"
	if c.All()[0].Message != "e1" {
		t.Fatalf("collector affected by caller mutation")
	}
}

func TestDiscard(t *testing.T) {
	Discard.Report(Diagnostic{Severity: SeverityError, Message: "dropped"})
}
