// Package reconcile walks a GraphQL operation's AST and the server's result
// payload in lockstep and applies the row-store directives it encounters.
//
// # Traversal model
//
// One reconciliation is a single synchronous recursive pass over
// (selection set, response value) pairs:
//
//   - An array value fans the same selection set out over every element.
//     Directives for the node itself were already applied to the array as a
//     whole; the per-element descent only discovers nested selections.
//   - An object value dispatches per selection. A field reads its child by
//     response key (alias when present, else name), applies its own
//     directives to that child, then descends into its selection set. An
//     inline fragment descends with the same value; it does not consume a
//     level of the data. A fragment spread resolves its definition in the
//     fragment table built once per response, applies the spread-site and
//     definition directives to the current value, and descends with that
//     same value.
//
// There is no shared mutable traversal state beyond the read-only fragment
// table, a cycle guard for fragment spreads, and the injected row store and
// diagnostic sink. Traversal never inspects a schema: a directive's effect
// depends only on the AST node it is attached to and the value in scope
// there.
//
// # Directive semantics
//
// @dbMergeRow performs a cell-wise partial merge keyed by the value's id
// field, one merge per element when the value is an array. Only primitive
// fields (string, number, boolean) become cells. @dbDeleteRow deletes the
// row(s) named by the value, coercing scalars to row-id strings. Merge is
// processed before delete when both appear on one node.
//
// # Failure semantics
//
// Nothing raises to the caller. A malformed directive (missing or wrong-kind
// table argument) is an error diagnostic and the directive is skipped; a
// data-shape problem (mergeable value without an id, undeletable value) is a
// warning diagnostic and the value is skipped. Absent response keys and
// unresolvable fragment spreads are expected in partial responses and are
// skipped silently. Every failure is local: siblings and the rest of the
// tree still reconcile.
package reconcile
