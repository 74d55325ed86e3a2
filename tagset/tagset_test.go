package tagset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTagSetLine(t *testing.T) {
	ts, err := ParseTagSetLine("colour=blue size=5 marker", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, ts.Len())
	assert.Equal(t, "blue", ts.Value("colour"))
	assert.Equal(t, int64(5), ts.Value("size"))
	assert.True(t, ts.Has("marker"))
	assert.Nil(t, ts.Value("marker"))
}

func TestTagSetStringRoundTrip(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("colour", "blue")
	ts.Set("size", 5)
	ts.Set("marker", nil)
	ts.Set("title", "Black Widow")

	line := ts.String()
	assert.Equal(t, `colour=blue marker size=5 title="Black Widow"`, line)

	back, err := ParseTagSetLine(line, nil)
	require.NoError(t, err)
	assert.Equal(t, ts.AsMap(), back.AsMap())
}

func TestTagSetSetModified(t *testing.T) {
	ts := NewTagSet(nil)
	assert.False(t, ts.Modified)

	ts.Set("colour", "blue")
	assert.True(t, ts.Modified)

	ts.Modified = false
	ts.Set("colour", "blue")
	assert.False(t, ts.Modified, "re-setting an identical value is a no-op")

	// identity is by normalized value: int and int64 compare equal
	ts.Set("size", int64(5))
	ts.Modified = false
	ts.Set("size", 5)
	assert.False(t, ts.Modified)

	ts.Set("colour", "red")
	assert.True(t, ts.Modified)
}

func TestTagSetDiscard(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("colour", "blue")
	ts.Set("size", 5)

	removed := ts.Discard("colour", "red")
	assert.Nil(t, removed, "mismatched value does not discard")
	assert.True(t, ts.Has("colour"))

	removed = ts.Discard("colour", "blue")
	require.NotNil(t, removed)
	assert.Equal(t, "blue", removed.Value)
	assert.False(t, ts.Has("colour"))

	removed = ts.Discard("size", nil)
	require.NotNil(t, removed, "nil value discards unconditionally")
	assert.Equal(t, int64(5), removed.Value)

	assert.Nil(t, ts.Discard("absent", nil))
}

func TestTagSetSetFrom(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("keep", "same")
	ts.Set("change", "old")
	ts.Set("drop", "gone")

	ts.SetFrom(map[string]interface{}{
		"keep":   "same",
		"change": "new",
		"add":    int64(1),
	})

	assert.Equal(t, map[string]interface{}{
		"keep":   "same",
		"change": "new",
		"add":    int64(1),
	}, ts.AsMap())
}

func TestTagSetSubtags(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("cast.lead", "alice")
	ts.Set("cast.support", "bob")
	ts.Set("castoff", "not this one")
	ts.Set("title", "x")

	sub := ts.Subtags("cast")
	assert.Equal(t, map[string]interface{}{
		"lead":    "alice",
		"support": "bob",
	}, sub.AsMap())
	assert.False(t, sub.Modified)
}

func TestTagSetUpdateWithPrefix(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Update(map[string]interface{}{"lead": "alice", "support": "bob"}, "cast")
	assert.Equal(t, "alice", ts.Value("cast.lead"))
	assert.Equal(t, "bob", ts.Value("cast.support"))
}

func TestTagSetAsTagsSorted(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("zebra", 1)
	ts.Set("alpha", 2)
	ts.Set("mid", 3)

	tags := ts.AsTags("")
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	assert.Equal(t, []string{"alpha", "mid", "zebra"}, names)
}

func TestTagSetEdit(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("colour", "blue")
	ts.Set("size", 5)

	err := ts.Edit(func(lines []string) ([]string, error) {
		return []string{
			"# edited by test",
			"",
			"colour=red",
			"marker",
		}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"colour": "red",
		"marker": nil,
	}, ts.AsMap(), "size dropped, colour changed, marker added")
}

func TestTagSetEditBadLine(t *testing.T) {
	ts := NewTagSet(nil)
	ts.Set("colour", "blue")

	err := ts.Edit(func(lines []string) ([]string, error) {
		return []string{"=nonsense"}, nil
	})
	require.Error(t, err)
	assert.Equal(t, "blue", ts.Value("colour"), "failed edit leaves the TagSet untouched")
}
