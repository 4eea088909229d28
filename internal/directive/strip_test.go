package directive

import (
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/graphrow/internal/language"
)

func mustParse(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(q)
	require.NoError(t, err)
	return doc
}

// One of each carrier position: operation, field, fragment spread, inline
// fragment, fragment definition, plus foreign directives that must survive.
const dirtyQuery = `query Feed($showAuthor: Boolean!) @cached @dbMergeRow(table: "ops") {
	feed: posts(first: 10) @dbMergeRow(table: Posts) {
		id
		title
		author @include(if: $showAuthor) {
			...authorRow @dbMergeRow(table: "authors")
		}
		... on PinnedPost @dbMergeRow(table: "pinned") {
			pinnedAt
		}
	}
	removed @dbDeleteRow(table: "posts") @skip(if: false)
}

fragment authorRow on User @dbMergeRow(table: "users") {
	id
	name
}`

// The same document with the two row-store directives erased by hand.
const cleanQuery = `query Feed($showAuthor: Boolean!) @cached {
	feed: posts(first: 10) {
		id
		title
		author @include(if: $showAuthor) {
			...authorRow
		}
		... on PinnedPost {
			pinnedAt
		}
	}
	removed @skip(if: false)
}

fragment authorRow on User {
	id
	name
}`

func TestStripDocument_RemovesRecognizedEverywhere(t *testing.T) {
	out := language.FormatQuery(StripDocument(mustParse(t, dirtyQuery)))

	require.NotContains(t, out, MergeRowName)
	require.NotContains(t, out, DeleteRowName)
	require.Contains(t, out, "@cached")
	require.Contains(t, out, "@include")
	require.Contains(t, out, "@skip")
	require.Contains(t, out, "authorRow")
}

// Rendering the stripped document and rendering a hand-cleaned equivalent
// must agree byte for byte: arguments, aliases, and selection structure are
// untouched by the rewrite.
func TestStripDocument_EquivalentToCleanDocument(t *testing.T) {
	got := language.FormatQuery(StripDocument(mustParse(t, dirtyQuery)))
	want := language.FormatQuery(mustParse(t, cleanQuery))
	require.Equal(t, want, got)
}

func TestStripDocument_InputNotMutated(t *testing.T) {
	doc := mustParse(t, dirtyQuery)
	before := language.FormatQuery(doc)

	StripDocument(doc)

	require.Equal(t, before, language.FormatQuery(doc))
}

// Directive lists on the returned nodes are rebuilt, never aliased, and end
// up nil when nothing survives.
func TestStripDocument_ASTShape(t *testing.T) {
	out := StripDocument(mustParse(t, dirtyQuery))

	op := out.Operations[0]
	require.Len(t, op.Directives, 1)
	require.Equal(t, "cached", op.Directives[0].Name)

	feed := op.SelectionSet[0].(*language.Field)
	require.Nil(t, feed.Directives)

	author := feed.SelectionSet[2].(*language.Field)
	require.Len(t, author.Directives, 1)
	require.Equal(t, "include", author.Directives[0].Name)

	spread := author.SelectionSet[0].(*language.FragmentSpread)
	require.Nil(t, spread.Directives)

	inline := feed.SelectionSet[3].(*language.InlineFragment)
	require.Nil(t, inline.Directives)

	removed := op.SelectionSet[1].(*language.Field)
	require.Len(t, removed.Directives, 1)
	require.Equal(t, "skip", removed.Directives[0].Name)

	frag := out.Fragments[0]
	require.Nil(t, frag.Directives)
	require.Equal(t, "authorRow", frag.Name)
}

// A directive whose name merely resembles the recognized pair survives.
func TestStripDocument_NearMissNamesSurvive(t *testing.T) {
	doc := mustParse(t, `{ a @dbMergeRows(table: "x") @DBMergeRow(table: "y") }`)
	out := StripDocument(doc)

	field := out.Operations[0].SelectionSet[0].(*language.Field)
	require.Len(t, field.Directives, 2)
}
