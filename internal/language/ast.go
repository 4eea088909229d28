package language

import "github.com/vektah/gqlparser/v2/ast"

// Aliases for the gqlparser query-side AST. The stripper and reconciler only
// ever see executable documents, so the schema half of the ast package is
// deliberately not re-exported here.
type (
	QueryDocument          = ast.QueryDocument
	OperationDefinition    = ast.OperationDefinition
	OperationList          = ast.OperationList
	SelectionSet           = ast.SelectionSet
	Selection              = ast.Selection
	Field                  = ast.Field
	InlineFragment         = ast.InlineFragment
	FragmentDefinition     = ast.FragmentDefinition
	FragmentDefinitionList = ast.FragmentDefinitionList
	FragmentSpread         = ast.FragmentSpread
	Directive              = ast.Directive
	DirectiveList          = ast.DirectiveList
	Argument               = ast.Argument
	ArgumentList           = ast.ArgumentList
	Value                  = ast.Value
	Position               = ast.Position
)

type Operation = ast.Operation

type ValueKind = ast.ValueKind

const (
	Query        Operation = ast.Query
	Mutation     Operation = ast.Mutation
	Subscription Operation = ast.Subscription

	Variable     ValueKind = ast.Variable
	IntValue     ValueKind = ast.IntValue
	FloatValue   ValueKind = ast.FloatValue
	StringValue  ValueKind = ast.StringValue
	BlockValue   ValueKind = ast.BlockValue
	BooleanValue ValueKind = ast.BooleanValue
	NullValue    ValueKind = ast.NullValue
	EnumValue    ValueKind = ast.EnumValue
	ListValue    ValueKind = ast.ListValue
	ObjectValue  ValueKind = ast.ObjectValue
)

// ValueKindName spells out a value kind for diagnostics.
func ValueKindName(k ValueKind) string {
	switch k {
	case Variable:
		return "Variable"
	case IntValue:
		return "IntValue"
	case FloatValue:
		return "FloatValue"
	case StringValue:
		return "StringValue"
	case BlockValue:
		return "BlockValue"
	case BooleanValue:
		return "BooleanValue"
	case NullValue:
		return "NullValue"
	case EnumValue:
		return "EnumValue"
	case ListValue:
		return "ListValue"
	case ObjectValue:
		return "ObjectValue"
	default:
		return "Unknown"
	}
}
