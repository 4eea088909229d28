package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Request is the GraphQL-over-HTTP request body. Query carries the stripped
// document text; the row-store directives never reach the server.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Location points into the query text of a GraphQL error.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Error is one entry of a response's "errors" array.
type Error struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e Error) Error() string {
	if len(e.Locations) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Locations[0].Line, e.Locations[0].Column)
}

// Errors is the whole "errors" array. As an error value it is non-empty.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i := range e {
		msgs[i] = e[i].Error()
	}
	return strings.Join(msgs, "; ")
}

// Result is one GraphQL execution result. Data is nil for error-only
// responses. Partial results carry both fields.
type Result struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors Errors         `json:"errors,omitempty"`
}

// HasData reports whether the result carries anything to reconcile.
func (r *Result) HasData() bool { return r != nil && len(r.Data) > 0 }

// decodeResult decodes an execution-result JSON body. Data decodes with
// UseNumber so numeric row ids keep their wire literal.
func decodeResult(raw []byte) (*Result, error) {
	var out struct {
		Data   json.RawMessage `json:"data"`
		Errors Errors          `json:"errors"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pipeline: decode result: %w", err)
	}
	res := &Result{Errors: out.Errors}
	if len(out.Data) > 0 && !bytes.Equal(out.Data, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(out.Data))
		dec.UseNumber()
		if err := dec.Decode(&res.Data); err != nil {
			return nil, fmt.Errorf("pipeline: decode result data: %w", err)
		}
	}
	return res, nil
}
