package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	diag "github.com/hanpama/graphrow/internal/diag"
	directive "github.com/hanpama/graphrow/internal/directive"
	events "github.com/hanpama/graphrow/internal/events"
	language "github.com/hanpama/graphrow/internal/language"
)

// RowStore is the mutation surface the reconciler needs from the row store.
// Both calls must be individually atomic and safe to invoke repeatedly; the
// reconciler never reads back.
type RowStore interface {
	// SetPartialRow merges cells into the row (table, id), creating it if
	// absent. Cells not present in the map are retained.
	SetPartialRow(table, id string, cells map[string]any)
	// DelRow removes the whole row. Removing an absent row is a no-op.
	DelRow(table, id string)
}

// Reconciler applies the row-store directives found in an operation document
// to the result payload the server returned for it.
type Reconciler struct {
	store RowStore
	sink  diag.Sink
}

type Option func(*Reconciler)

// WithSink replaces the default console sink.
func WithSink(s diag.Sink) Option { return func(r *Reconciler) { r.sink = s } }

func New(store RowStore, opts ...Option) *Reconciler {
	r := &Reconciler{store: store, sink: diag.NewConsoleSink()}
	for _, f := range opts {
		f(r)
	}
	return r
}

// Apply reconciles one operation result into the row store. doc must be the
// original, directive-bearing document; a stripped document walks the same
// tree and finds nothing to do. data is the decoded top-level result object;
// nil or empty means the response carried no data and Apply does nothing.
//
// Apply returns nothing: every failure mode is absorbed locally and reported
// through the sink, and the walk always continues into siblings. ctx is
// threaded for event propagation only and is never checked for cancellation;
// one call is one synchronous pass with no suspension points.
func (r *Reconciler) Apply(ctx context.Context, doc *language.QueryDocument, operationName string, data map[string]any) {
	if doc == nil || len(data) == 0 {
		return
	}
	op := getOperation(doc, operationName)
	if op == nil {
		return
	}

	w := &walk{
		store:     r.store,
		sink:      r.sink,
		fragments: fragmentTable(doc),
		visiting:  make(map[string]bool),
		operation: op.Name,
	}

	start := time.Now()
	events.ReconcileStarts.Publish(ctx, events.ReconcileStart{OperationName: op.Name})
	w.selectionSet(op.SelectionSet, data)
	events.ReconcileFinishes.Publish(ctx, events.ReconcileFinish{
		OperationName: op.Name,
		Merges:        w.merges,
		Deletes:       w.deletes,
		Errors:        w.errors,
		Warnings:      w.warnings,
		Duration:      time.Since(start),
	})
}

// getOperation retrieves the operation from the document: the named one when
// a name is given, else the first.
func getOperation(doc *language.QueryDocument, operationName string) *language.OperationDefinition {
	op := doc.Operations.ForName(operationName)
	if op == nil && operationName == "" && len(doc.Operations) > 0 {
		op = doc.Operations[0]
	}
	return op
}

// fragmentTable indexes the document's fragment definitions by name, fresh
// per response. The first definition wins on a duplicate name.
func fragmentTable(doc *language.QueryDocument) map[string]*language.FragmentDefinition {
	table := make(map[string]*language.FragmentDefinition, len(doc.Fragments))
	for _, frag := range doc.Fragments {
		if _, ok := table[frag.Name]; ok {
			continue
		}
		table[frag.Name] = frag
	}
	return table
}

// walk holds the state of one reconciliation pass: the read-only fragment
// table, a guard against fragment spread cycles, the injected store and
// sink, and the mutation counters for the finish event.
type walk struct {
	store     RowStore
	sink      diag.Sink
	fragments map[string]*language.FragmentDefinition
	visiting  map[string]bool
	operation string

	merges   int
	deletes  int
	errors   int
	warnings int
}

// selectionSet descends one (selection set, value) pair. An array fans the
// same selection set out over every element; directives for the node that
// produced the array were already applied to it as a whole, so the
// per-element pass only discovers nested selections. Scalars and null end
// the descent.
func (w *walk) selectionSet(set language.SelectionSet, value any) {
	switch v := value.(type) {
	case []any:
		for _, elem := range v {
			w.selectionSet(set, elem)
		}
	case map[string]any:
		for _, sel := range set {
			w.selection(sel, v)
		}
	}
}

func (w *walk) selection(sel language.Selection, obj map[string]any) {
	switch sel := sel.(type) {
	case *language.Field:
		responseKey := sel.Alias
		if responseKey == "" {
			responseKey = sel.Name
		}
		child, ok := obj[responseKey]
		if !ok {
			// Absent keys are expected in partial responses.
			return
		}
		w.applyDirectives(sel.Directives, child, responseKey)
		if len(sel.SelectionSet) != 0 && child != nil {
			w.selectionSet(sel.SelectionSet, child)
		}

	case *language.InlineFragment:
		// An inline fragment does not consume a level of the data: its
		// directives and selections see the same object.
		w.applyDirectives(sel.Directives, obj, inlineSite(sel))
		w.selectionSet(sel.SelectionSet, obj)

	case *language.FragmentSpread:
		frag := w.fragments[sel.Name]
		if frag == nil || w.visiting[sel.Name] {
			// Unresolvable spreads are expected in partial documents;
			// revisiting one mid-descent would recurse forever.
			return
		}
		w.visiting[sel.Name] = true
		w.applyDirectives(sel.Directives, obj, "..."+sel.Name)
		w.applyDirectives(frag.Directives, obj, "fragment "+frag.Name)
		w.selectionSet(frag.SelectionSet, obj)
		delete(w.visiting, sel.Name)
	}
}

func inlineSite(sel *language.InlineFragment) string {
	if sel.TypeCondition == "" {
		return "..."
	}
	return "... on " + sel.TypeCondition
}

// applyDirectives applies a node's row-store directives to the value in
// scope at that node. Merge runs before delete; both address (table, id),
// never the same cell, so the order has no observable effect. A repeated
// directive of the same name is honored once, first occurrence wins.
func (w *walk) applyDirectives(list language.DirectiveList, value any, site string) {
	if len(list) == 0 {
		return
	}
	if d := list.ForName(directive.MergeRowName); d != nil {
		w.mergeRow(d, value, site)
	}
	if d := list.ForName(directive.DeleteRowName); d != nil {
		w.deleteRow(d, value, site)
	}
}

func (w *walk) mergeRow(d *language.Directive, value any, site string) {
	table, err := directive.TableName(d)
	if err != nil {
		w.error(fmt.Sprintf("cannot resolve table for @%s: %v", d.Name, err), map[string]any{
			"op": w.operation, "site": site,
		})
		return
	}
	switch v := value.(type) {
	case []any:
		for _, elem := range v {
			w.mergeOne(table, elem, site)
		}
	case map[string]any:
		w.mergeOne(table, v, site)
	}
	// Scalars and null are not mergeable and are ignored.
}

// mergeOne upserts a single object into table, keyed by its id field. Only
// primitive fields become cells; nested objects and arrays are traversal
// structure, not row data.
func (w *walk) mergeOne(table string, value any, site string) {
	obj, _ := value.(map[string]any)
	id, ok := rowID(obj["id"])
	if !ok {
		w.warn(fmt.Sprintf("cannot merge into table %q: value has no id", table), map[string]any{
			"op": w.operation, "site": site, "value": value,
		})
		return
	}
	cells := make(map[string]any, len(obj))
	for name, cell := range obj {
		if isCell(cell) {
			cells[name] = cell
		}
	}
	w.store.SetPartialRow(table, id, cells)
	w.merges++
}

func (w *walk) deleteRow(d *language.Directive, value any, site string) {
	table, err := directive.TableName(d)
	if err != nil {
		w.error(fmt.Sprintf("cannot resolve table for @%s: %v", d.Name, err), map[string]any{
			"op": w.operation, "site": site,
		})
		return
	}
	if elems, ok := value.([]any); ok {
		for _, elem := range elems {
			w.deleteOne(table, elem, site)
		}
		return
	}
	w.deleteOne(table, value, site)
}

func (w *walk) deleteOne(table string, value any, site string) {
	if value == nil {
		return
	}
	id, ok := rowID(value)
	if !ok {
		w.warn(fmt.Sprintf("cannot delete from table %q: value does not name a row id", table), map[string]any{
			"op": w.operation, "site": site, "value": value,
		})
		return
	}
	w.store.DelRow(table, id)
	w.deletes++
}

func (w *walk) error(msg string, ctx map[string]any) {
	w.errors++
	w.sink.Report(diag.Diagnostic{Severity: diag.SeverityError, Message: msg, Context: ctx})
}

func (w *walk) warn(msg string, ctx map[string]any) {
	w.warnings++
	w.sink.Report(diag.Diagnostic{Severity: diag.SeverityWarning, Message: msg, Context: ctx})
}

// rowID coerces a scalar to the row-id string used by the store, keeping the
// wire literal where one exists: a json.Number id "7" stays "7".
func rowID(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case int:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// isCell reports whether v is representable as a row cell. Rows are flat
// primitive maps; null carries nothing to merge.
func isCell(v any) bool {
	switch v.(type) {
	case string, bool, json.Number, float64, int, int64:
		return true
	default:
		return false
	}
}
