package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	diag "github.com/hanpama/graphrow/internal/diag"
	language "github.com/hanpama/graphrow/internal/language"
	opid "github.com/hanpama/graphrow/internal/opid"
	reconcile "github.com/hanpama/graphrow/internal/reconcile"
)

const userQuery = `{ user @dbMergeRow(table: "users") { id name } }`

func newTestPipeline(tp Transport, subs SubscriptionTransport) (*Pipeline, *reconcile.MockStore) {
	st := reconcile.NewMockStore()
	rec := reconcile.New(st, reconcile.WithSink(diag.Discard))
	return New(rec, tp, subs), st
}

func dataResult(t *testing.T, body string) *Result {
	t.Helper()
	res, err := decodeResult([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res
}

func TestDo_StripsDirectivesOnWire(t *testing.T) {
	tp := &MockTransport{Result: &Result{}}
	p, _ := newTestPipeline(tp, nil)

	vars := map[string]any{"first": 10}
	if _, err := p.Do(context.Background(), userQuery, "", vars); err != nil {
		t.Fatalf("Do: %v", err)
	}

	reqs := tp.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if strings.Contains(reqs[0].Query, "dbMergeRow") || strings.Contains(reqs[0].Query, "dbDeleteRow") {
		t.Fatalf("directives leaked onto the wire:\n%s", reqs[0].Query)
	}
	if !strings.Contains(reqs[0].Query, "user") || !strings.Contains(reqs[0].Query, "name") {
		t.Fatalf("selection structure lost:\n%s", reqs[0].Query)
	}
	if diff := cmp.Diff(vars, reqs[0].Variables); diff != "" {
		t.Fatalf("variables mismatch (-want +got):\n%s", diff)
	}
}

func TestDo_ReconcilesDataResult(t *testing.T) {
	tp := &MockTransport{Result: dataResult(t, `{"data": {"user": {"id": "1", "name": "Alice"}}}`)}
	p, st := newTestPipeline(tp, nil)

	res, err := p.Do(context.Background(), userQuery, "", nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !res.HasData() {
		t.Fatalf("result lost its data")
	}

	want := []reconcile.Mutation{
		{Kind: "merge", Table: "users", ID: "1", Cells: map[string]any{"id": "1", "name": "Alice"}},
	}
	if diff := cmp.Diff(want, st.Mutations()); diff != "" {
		t.Fatalf("mutations mismatch (-want +got):\n%s", diff)
	}
}

func TestDo_ErrorsOnlyResultSkipsReconcile(t *testing.T) {
	tp := &MockTransport{Result: dataResult(t, `{"errors": [{"message": "boom"}]}`)}
	p, st := newTestPipeline(tp, nil)

	res, err := p.Do(context.Background(), userQuery, "", nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(res.Errors) != 1 || res.Errors[0].Message != "boom" {
		t.Fatalf("errors lost: %+v", res.Errors)
	}
	if got := st.Mutations(); len(got) != 0 {
		t.Fatalf("expected no mutations, got %v", got)
	}
}

func TestDo_TransportErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	tp := &MockTransport{Err: boom}
	p, st := newTestPipeline(tp, nil)

	_, err := p.Do(context.Background(), userQuery, "", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if got := st.Mutations(); len(got) != 0 {
		t.Fatalf("expected no mutations, got %v", got)
	}
}

func TestDo_ParseErrorFailsBeforeTransport(t *testing.T) {
	tp := &MockTransport{Result: &Result{}}
	p, _ := newTestPipeline(tp, nil)

	if _, err := p.Do(context.Background(), `{ user `, "", nil); err == nil {
		t.Fatalf("expected parse error")
	}
	if got := tp.Requests(); len(got) != 0 {
		t.Fatalf("transport called despite parse error: %v", got)
	}
}

func TestDo_NoTransport(t *testing.T) {
	p, _ := newTestPipeline(nil, nil)
	if _, err := p.Do(context.Background(), userQuery, "", nil); !errors.Is(err, ErrNoTransport) {
		t.Fatalf("err = %v, want ErrNoTransport", err)
	}
}

func TestSubscribe_ReconcilesEveryPayload(t *testing.T) {
	tp := &MockTransport{Results: []*Result{
		dataResult(t, `{"data": {"user": {"id": "1", "name": "Alice"}}}`),
		dataResult(t, `{"data": {"user": {"id": "1", "name": "Alicia"}}}`),
		dataResult(t, `{"errors": [{"message": "push failed"}]}`),
	}}
	p, st := newTestPipeline(nil, tp)

	var seen []*Result
	err := p.Subscribe(context.Background(), userQuery, "", nil, func(res *Result) error {
		seen = append(seen, res)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("handler saw %d payloads, want 3", len(seen))
	}
	if reqs := tp.Requests(); strings.Contains(reqs[0].Query, "dbMergeRow") {
		t.Fatalf("directives leaked onto the wire:\n%s", reqs[0].Query)
	}

	want := []reconcile.Mutation{
		{Kind: "merge", Table: "users", ID: "1", Cells: map[string]any{"id": "1", "name": "Alice"}},
		{Kind: "merge", Table: "users", ID: "1", Cells: map[string]any{"id": "1", "name": "Alicia"}},
	}
	if diff := cmp.Diff(want, st.Mutations()); diff != "" {
		t.Fatalf("mutations mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscribe_HandlerErrorStopsStream(t *testing.T) {
	tp := &MockTransport{Results: []*Result{
		dataResult(t, `{"data": {"user": {"id": "1", "name": "Alice"}}}`),
		dataResult(t, `{"data": {"user": {"id": "2", "name": "Bob"}}}`),
	}}
	p, st := newTestPipeline(nil, tp)

	stop := errors.New("enough")
	err := p.Subscribe(context.Background(), userQuery, "", nil, func(*Result) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want %v", err, stop)
	}
	if n := len(st.Mutations()); n != 1 {
		t.Fatalf("expected 1 mutation before stop, got %d", n)
	}
}

func TestSubscribe_NoTransport(t *testing.T) {
	p, _ := newTestPipeline(nil, nil)
	err := p.Subscribe(context.Background(), userQuery, "", nil, func(*Result) error { return nil })
	if !errors.Is(err, ErrNoSubscriptionTransport) {
		t.Fatalf("err = %v, want ErrNoSubscriptionTransport", err)
	}
}

// The side channel hands back the stripped fallback for an unknown id, so a
// lost stash entry degrades to a silent no-op instead of failing.
func TestStashFallback(t *testing.T) {
	s := stash{docs: make(map[opid.ID]*language.QueryDocument)}
	orig := &language.QueryDocument{}
	fallback := &language.QueryDocument{}

	id := opid.New()
	s.put(id, orig)
	if got := s.get(id, fallback); got != orig {
		t.Fatalf("get returned %p, want stashed %p", got, orig)
	}

	s.drop(id)
	if got := s.get(id, fallback); got != fallback {
		t.Fatalf("get after drop returned %p, want fallback %p", got, fallback)
	}
	if got := s.get(opid.New(), fallback); got != fallback {
		t.Fatalf("get for unknown id did not return fallback")
	}
}

func TestDecodeResult(t *testing.T) {
	res, err := decodeResult([]byte(`{"data": {"n": 7, "f": 1.5}, "errors": [{"message": "partial", "locations": [{"line": 2, "column": 3}]}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := res.Data["n"]; got != json.Number("7") {
		t.Fatalf("n = %#v, want json.Number(\"7\")", got)
	}
	if got := res.Data["f"]; got != json.Number("1.5") {
		t.Fatalf("f = %#v, want json.Number(\"1.5\")", got)
	}
	if len(res.Errors) != 1 || res.Errors[0].Locations[0].Line != 2 {
		t.Fatalf("errors mismatch: %+v", res.Errors)
	}

	res, err = decodeResult([]byte(`{"data": null, "errors": [{"message": "boom"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.HasData() {
		t.Fatalf("null data should not count as data")
	}

	if _, err := decodeResult([]byte(`{not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
