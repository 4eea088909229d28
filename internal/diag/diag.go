// Package diag carries reconciliation diagnostics to an operator-visible
// channel. The reconciler never returns errors to its caller; malformed
// directives and data-shape problems are reported here and traversal
// continues.
package diag

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

// Tag prefixes every console-rendered diagnostic line.
const Tag = "[graphrow]"

// Severity classifies a diagnostic.
type Severity int

const (
	// SeverityError marks malformed directive usage (missing or wrong-kind
	// table argument). The directive is skipped.
	SeverityError Severity = iota
	// SeverityWarning marks data-shape problems (mergeable value without an
	// id, undeletable value). The value is skipped.
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Diagnostic is one reported condition with structured context, so tests can
// assert on fields instead of scraping log output.
type Diagnostic struct {
	Severity Severity
	Message  string
	Context  map[string]any
}

func (d Diagnostic) String() string {
	if len(d.Context) == 0 {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	keys := make([]string, 0, len(d.Context))
	for k := range d.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Severity, d.Message)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, d.Context[k])
	}
	return b.String()
}

// Sink receives diagnostics. Implementations must be safe for concurrent use;
// the pipeline may reconcile independent responses from multiple goroutines.
type Sink interface {
	Report(d Diagnostic)
}

// ConsoleSink renders diagnostics to a standard logger, one line each,
// prefixed with Tag.
type ConsoleSink struct {
	Logger *log.Logger // nil means the process-default logger
}

func NewConsoleSink() *ConsoleSink { return &ConsoleSink{} }

func (c *ConsoleSink) Report(d Diagnostic) {
	l := c.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("%s %s", Tag, d)
}

// Collector records diagnostics in memory for test assertions.
type Collector struct {
	mu   sync.Mutex
	list []Diagnostic
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	c.list = append(c.list, d)
	c.mu.Unlock()
}

// All returns a copy of everything reported so far.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.list))
	copy(out, c.list)
	return out
}

// Count returns how many diagnostics of the given severity were reported.
func (c *Collector) Count(s Severity) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.list {
		if d.Severity == s {
			n++
		}
	}
	return n
}

type nopSink struct{}

func (nopSink) Report(Diagnostic) {}

// Discard drops every diagnostic.
var Discard Sink = nopSink{}
