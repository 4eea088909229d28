package reconcile

import (
	"encoding/json"
	"strings"
	"testing"

	language "github.com/hanpama/graphrow/internal/language"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// mustDecodeData decodes a JSON object the way the pipeline decodes response
// data: numbers stay json.Number.
func mustDecodeData(t *testing.T, data string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return out
}
