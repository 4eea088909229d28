// Package directive defines the two row-store directives, resolves their
// table argument, and rewrites outgoing documents so the directives never
// reach the server.
package directive

import (
	"errors"
	"fmt"

	language "github.com/hanpama/graphrow/internal/language"
)

const (
	// MergeRowName merges the value in scope into a table, one row per id.
	MergeRowName = "dbMergeRow"
	// DeleteRowName deletes the row(s) named by the value in scope.
	DeleteRowName = "dbDeleteRow"
)

// SDL is the schema snippet servers can paste to declare the directives.
// Declaring them is a convention for tooling; this engine never validates
// locations. An enum value passed as table resolves to its name lowercased.
const SDL = `"""
Merges the value in scope into the named table, keyed by the value's id field.
"""
directive @` + MergeRowName + `(table: String!) on FIELD | FRAGMENT_DEFINITION

"""
Deletes the row(s) identified by the value in scope from the named table.
"""
directive @` + DeleteRowName + `(table: String!) on FIELD
`

// ErrMissingTable reports a recognized directive without a table argument.
var ErrMissingTable = errors.New("missing table argument")

// BadTableKindError reports a table argument that is neither a string
// literal nor an enum symbol.
type BadTableKindError struct {
	Kind language.ValueKind
}

func (e *BadTableKindError) Error() string {
	return fmt.Sprintf("table argument of unexpected kind %s", language.ValueKindName(e.Kind))
}

// Recognized reports whether name is one of the two row-store directives.
func Recognized(name string) bool {
	return name == MergeRowName || name == DeleteRowName
}

// TableName resolves the table argument of a row-store directive.
// A string literal supplies the name verbatim; an enum symbol supplies its
// name lowercased ASCII, so `Post` names table "post". Anything else is a
// configuration error.
func TableName(d *language.Directive) (string, error) {
	arg := d.Arguments.ForName("table")
	if arg == nil || arg.Value == nil {
		return "", ErrMissingTable
	}
	switch arg.Value.Kind {
	case language.StringValue, language.BlockValue:
		return arg.Value.Raw, nil
	case language.EnumValue:
		return asciiLower(arg.Value.Raw), nil
	default:
		return "", &BadTableKindError{Kind: arg.Value.Kind}
	}
}

// asciiLower folds A-Z only. The table-name rule is bit-exact: no Unicode
// case mapping.
func asciiLower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
