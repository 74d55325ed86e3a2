package tagset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceNesting(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("series.title", "Avengers")
	ts.Set("series.season", 3)
	ts.Set("episode", 12)

	ns := ts.Ns()
	assert.Equal(t, "Avengers", ns.Resolve("series.title").Tag().Value)
	assert.Equal(t, int64(3), ns.Resolve("series.season").Tag().Value)
	assert.Equal(t, int64(12), ns.Attr("episode").Tag().Value)
	assert.Equal(t, []string{"episode", "series"}, ns.Keys())
}

func TestNamespaceCollidingNames(t *testing.T) {
	// "a.b" and "a..b" collapse to the same node; tags are applied in
	// reverse lexical order with unconditional overwrite, so the lexically
	// least original name wins.
	ts := NewTagSet(nil)
	ts.Set("a.b", 1)
	ts.Set("a..b", 2)

	ns := ts.Ns()
	assert.Equal(t, int64(2), ns.Resolve("a.b").Tag().Value)
}

func TestNamespacePlaceholder(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("colour", "blue")

	node := ts.Ns().Resolve("no.such.path")
	assert.True(t, node.IsPlaceholder())
	assert.False(t, node.Bool())
	assert.Equal(t, "{no.such.path}", node.Format(""))
}

func TestNamespaceLowercaseInference(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("title", "Black Widow")
	ts.Set("name_lc", "natasha_romanov")

	ns := ts.Ns()
	assert.Equal(t, "black_widow", ns.Attr("title_lc").Tag().Value)
	assert.Equal(t, "Natasha Romanov", ns.Attr("name").Tag().Value)
}

func TestNamespacePluralInference(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("bar", "x")
	ts.Set("boxes", []interface{}{"first", "second"})

	ns := ts.Ns()
	assert.Equal(t, []interface{}{"x"}, ns.Attr("bars").Tag().Value,
		"plural synthesized from singular")
	assert.Equal(t, "first", ns.Attr("box").Tag().Value,
		"singular is the first element of the plural")
}

func TestNamespaceKeysValues(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("cast", map[string]interface{}{"alice": "leader", "bob": "sidekick"})

	ns := ts.Ns()
	keys := ns.Attr("cast").Attr("_keys").Tag().Value
	assert.Equal(t, []interface{}{"alice", "bob"}, keys)
	values := ns.Attr("cast").Attr("_values").Tag().Value
	assert.Equal(t, []interface{}{"leader", "sidekick"}, values)
}

func TestNamespaceMeta(t *testing.T) {
	ont := testOntology(t)
	ts := NewTagSet(ont)
	ts.Set("character", "Black Widow (Marvel)")

	ns := ts.Ns()
	fullname := ns.Attr("character").Attr("_meta").Attr("fullname")
	require.NotNil(t, fullname.Tag())
	assert.Equal(t, "Natasha Romanov", fullname.Tag().Value)
}

func TestNamespaceFormatMap(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("colour", "blue")
	ts.Set("size", 5)
	ts.Set("series.title", "Avengers")

	ns := ts.Ns()
	tests := []struct {
		template string
		want     string
	}{
		{"{colour} {size}", "blue 5"},
		{"{series.title}: {colour}", "Avengers: blue"},
		{"{missing}", "{missing}"},
		{"{{literal}}", "{literal}"},
		{"{size:>4}", "   5"},
		{"{colour:<6}|", "blue  |"},
	}
	for _, tc := range tests {
		t.Run(tc.template, func(t *testing.T) {
			assert.Equal(t, tc.want, ns.FormatMap(tc.template))
		})
	}
}

func TestEntityFormatKwargs(t *testing.T) {
	entity := testEntity(t, 3, "movie.1", `title="Black Widow" year=2021`)

	ns := entity.FormatKwargs()
	assert.Equal(t, "3", ns.FormatMap("{entity.id}"))
	assert.Equal(t, "movie.1", ns.FormatMap("{entity.name}"))
	assert.Equal(t, "Black Widow", ns.FormatMap("{title}"))
	assert.Equal(t, "2023-11-14T22:13:20", ns.FormatMap("{entity.isotime}"))

	// the whole tag line, derived entity.* tags included
	tagsLine := ns.FormatMap("{tags}")
	assert.Contains(t, tagsLine, `title="Black Widow"`)
	assert.Contains(t, tagsLine, "year=2021")
	assert.Contains(t, tagsLine, "entity.id=3")
}
