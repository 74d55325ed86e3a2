package tagset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntity(t *testing.T, id int64, name string, tagLine string) *TaggedEntity {
	t.Helper()
	tags, err := ParseTagSetLine(tagLine, nil)
	require.NoError(t, err)
	return &TaggedEntity{ID: id, Name: name, Unixtime: 1700000000, Tags: tags}
}

func TestParseCriterion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TagSetCriterion
		wantErr bool
	}{
		{
			name:  "presence test",
			input: "marker",
			want:  &TagBasedTest{Choice: true, Name: "marker"},
		},
		{
			name:  "negated presence with bang",
			input: "!marker",
			want:  &TagBasedTest{Choice: false, Name: "marker"},
		},
		{
			name:  "negated presence with dash",
			input: "-marker",
			want:  &TagBasedTest{Choice: false, Name: "marker"},
		},
		{
			name:  "equality",
			input: "colour=blue",
			want:  &TagBasedTest{Choice: true, Name: "colour", Comparison: OpEqual, Value: "blue"},
		},
		{
			name:  "less than",
			input: "size<10",
			want:  &TagBasedTest{Choice: true, Name: "size", Comparison: OpLess, Value: int64(10)},
		},
		{
			name:  "greater or equal",
			input: "size>=5",
			want:  &TagBasedTest{Choice: true, Name: "size", Comparison: OpGreaterEqual, Value: int64(5)},
		},
		{
			name:  "glob",
			input: "title~Black*",
			want:  &TagBasedTest{Choice: true, Name: "title", Comparison: OpGlob, Value: "Black*"},
		},
		{
			name:  "quoted glob pattern",
			input: `title~"Black *"`,
			want:  &TagBasedTest{Choice: true, Name: "title", Comparison: OpGlob, Value: "Black *"},
		},
		{
			name:  "regexp",
			input: `title~/^Black`,
			want:  &TagBasedTest{Choice: true, Name: "title", Comparison: OpRegexp, Value: "^Black"},
		},
		{
			name:  "entity id list",
			input: "id:1,3,5",
			want:  &EntityIDTest{Choice: true, IDs: []int64{1, 3, 5}},
		},
		{
			name:  "negated entity id",
			input: "!id:2",
			want:  &EntityIDTest{Choice: false, IDs: []int64{2}},
		},
		{
			name:    "trailing junk",
			input:   "colour=blue extra",
			wantErr: true,
		},
		{
			name:    "missing id",
			input:   "id:",
			wantErr: true,
		},
		{
			name:    "missing glob pattern",
			input:   "title~",
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCriterion(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCriterionMatching(t *testing.T) {
	entity := testEntity(t, 7, "movie.1",
		`title="Black Widow" year=2021 rating=7.5 cast=["alice","bob"] seen`)

	tests := []struct {
		criterion string
		want      bool
	}{
		{"seen", true},
		{"missing", false},
		{"!missing", true},
		{"!seen", false},
		{`title="Black Widow"`, true},
		{`title="Iron Man"`, false},
		{"year=2021", true},
		{"year<2022", true},
		{"year<2021", false},
		{"year<=2021", true},
		{"year>2000", true},
		{"year>=2022", false},
		{"rating>7", true},
		{"title~Black*", true},
		{"title~Widow*", false},
		// glob applies to any member of a list value
		{"cast~al*", true},
		{"cast~carol*", false},
		{`title~/Widow$`, true},
		{`title~/^Widow`, false},
		{"id:7", true},
		{"id:1,7,9", true},
		{"id:8", false},
		{"!id:8", true},
		// string vs int is incomparable: a non-match, not an error
		{"title>2000", false},
	}
	for _, tc := range tests {
		t.Run(tc.criterion, func(t *testing.T) {
			crit, err := ParseCriterion(tc.criterion)
			require.NoError(t, err)
			assert.Equal(t, tc.want, crit.MatchTaggedEntity(entity))
		})
	}
}

func TestMatchAll(t *testing.T) {
	entity := testEntity(t, 1, "", "colour=blue size=5")

	criteria, err := ParseCriteria([]string{"colour=blue", "size>=5"})
	require.NoError(t, err)
	assert.True(t, MatchAll(entity, criteria))

	criteria, err = ParseCriteria([]string{"colour=blue", "size>5"})
	require.NoError(t, err)
	assert.False(t, MatchAll(entity, criteria), "criteria AND together")

	assert.True(t, MatchAll(entity, nil), "no criteria matches everything")
}

func TestCriterionStringRoundTrip(t *testing.T) {
	specs := []string{
		"marker",
		"!marker",
		"colour=blue",
		"size<10",
		"size>=5",
		"id:1,3,5",
		"!id:2",
	}
	for _, spec := range specs {
		crit, err := ParseCriterion(spec)
		require.NoError(t, err)
		assert.Equal(t, spec, crit.String())
	}
}

func TestDateComparison(t *testing.T) {
	entity := testEntity(t, 0, "", "premiere=2019-04-26")

	crit, err := ParseCriterion("premiere>=2019-01-01")
	require.NoError(t, err)
	assert.True(t, crit.MatchTaggedEntity(entity))

	crit, err = ParseCriterion("premiere<2019-01-01")
	require.NoError(t, err)
	assert.False(t, crit.MatchTaggedEntity(entity))
}

func TestEqualityAfterStorageRoundTrip(t *testing.T) {
	// fetched entities carry dates and datetimes as their unixtime float
	// and UUIDs as their canonical string; = criteria parsed from text
	// hold the typed values and must still match
	premiere := mustDate(t, "2019-04-26")
	seen := mustDateTime(t, "2021-08-01T20:30:00")

	tags := NewTagSet(nil)
	tags.Set("premiere", float64(premiere.Unix()))
	tags.Set("seen", float64(seen.Unix()))
	tags.Set("ref", "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	entity := &TaggedEntity{ID: 3, Unixtime: 1700000000, Tags: tags}

	for _, spec := range []string{
		"premiere=2019-04-26",
		"premiere>=2019-04-26",
		"premiere<=2019-04-26",
		"seen=2021-08-01T20:30:00",
		"ref=6ba7b810-9dad-11d1-80b4-00c04fd430c8",
	} {
		crit, err := ParseCriterion(spec)
		require.NoError(t, err)
		assert.True(t, crit.MatchTaggedEntity(entity), spec)
	}

	for _, spec := range []string{
		"premiere=2019-04-27",
		"ref=6ba7b810-9dad-11d1-80b4-00c04fd430c9",
	} {
		crit, err := ParseCriterion(spec)
		require.NoError(t, err)
		assert.False(t, crit.MatchTaggedEntity(entity), spec)
	}
}
