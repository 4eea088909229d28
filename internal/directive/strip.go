package directive

import (
	language "github.com/hanpama/graphrow/internal/language"
)

// StripDocument returns a copy of doc with every @dbMergeRow and @dbDeleteRow
// removed from every directive-bearing node: operation definitions, fields,
// fragment spreads, inline fragments, and fragment definitions. All other
// directives, along with arguments, aliases, and selection structure, carry
// over unchanged.
//
// The input document is never mutated: reconciliation needs the original,
// directive-bearing tree after the stripped one has gone to the server.
// Leaf nodes that the reconciler treats as read-only (argument lists,
// positions) are shared between the two trees rather than copied.
func StripDocument(doc *language.QueryDocument) *language.QueryDocument {
	out := &language.QueryDocument{Position: doc.Position}
	for _, op := range doc.Operations {
		out.Operations = append(out.Operations, stripOperation(op))
	}
	for _, frag := range doc.Fragments {
		out.Fragments = append(out.Fragments, stripFragment(frag))
	}
	return out
}

func stripOperation(op *language.OperationDefinition) *language.OperationDefinition {
	return &language.OperationDefinition{
		Operation:           op.Operation,
		Name:                op.Name,
		VariableDefinitions: op.VariableDefinitions,
		Directives:          stripDirectives(op.Directives),
		SelectionSet:        stripSelectionSet(op.SelectionSet),
		Position:            op.Position,
	}
}

func stripFragment(frag *language.FragmentDefinition) *language.FragmentDefinition {
	return &language.FragmentDefinition{
		Name:               frag.Name,
		VariableDefinition: frag.VariableDefinition,
		TypeCondition:      frag.TypeCondition,
		Directives:         stripDirectives(frag.Directives),
		SelectionSet:       stripSelectionSet(frag.SelectionSet),
		Position:           frag.Position,
	}
}

func stripSelectionSet(set language.SelectionSet) language.SelectionSet {
	if set == nil {
		return nil
	}
	out := make(language.SelectionSet, 0, len(set))
	for _, sel := range set {
		switch sel := sel.(type) {
		case *language.Field:
			out = append(out, &language.Field{
				Alias:        sel.Alias,
				Name:         sel.Name,
				Arguments:    sel.Arguments,
				Directives:   stripDirectives(sel.Directives),
				SelectionSet: stripSelectionSet(sel.SelectionSet),
				Position:     sel.Position,
			})
		case *language.FragmentSpread:
			out = append(out, &language.FragmentSpread{
				Name:       sel.Name,
				Directives: stripDirectives(sel.Directives),
				Position:   sel.Position,
			})
		case *language.InlineFragment:
			out = append(out, &language.InlineFragment{
				TypeCondition: sel.TypeCondition,
				Directives:    stripDirectives(sel.Directives),
				SelectionSet:  stripSelectionSet(sel.SelectionSet),
				Position:      sel.Position,
			})
		}
	}
	return out
}

func stripDirectives(list language.DirectiveList) language.DirectiveList {
	if list == nil {
		return nil
	}
	out := make(language.DirectiveList, 0, len(list))
	for _, d := range list {
		if Recognized(d.Name) {
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
