package tagset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityIDTestSQLJoin(t *testing.T) {
	crit, err := ParseCriterion("id:1,3")
	require.NoError(t, err)
	sqlCrit, ok := crit.(SQLCriterion)
	require.True(t, ok)

	clause, err := sqlCrit.SQLJoin("c0")
	require.NoError(t, err)
	assert.Equal(t, "entities", clause.Table)
	assert.Equal(t, "c0.id", clause.EntityIDColumn)
	assert.Equal(t, "c0.id IN (?,?)", clause.Constraint)
	assert.Equal(t, []interface{}{int64(1), int64(3)}, clause.Args)
	assert.False(t, clause.Outer)
	assert.Empty(t, clause.Where)
}

func TestTagBasedTestSQLJoin(t *testing.T) {
	tests := []struct {
		name           string
		criterion      string
		wantConstraint string
		wantArgs       []interface{}
		wantOuter      bool
		wantWhere      string
	}{
		{
			name:           "presence",
			criterion:      "marker",
			wantConstraint: "t.name = ?",
			wantArgs:       []interface{}{"marker"},
		},
		{
			name:           "negated presence uses outer join and IS NULL",
			criterion:      "!marker",
			wantConstraint: "t.name = ?",
			wantArgs:       []interface{}{"marker"},
			wantOuter:      true,
			wantWhere:      "t.id IS NULL",
		},
		{
			name:           "string equality uses string_value",
			criterion:      "colour=blue",
			wantConstraint: "t.name = ? AND t.string_value = ?",
			wantArgs:       []interface{}{"colour", "blue"},
		},
		{
			name:           "numeric comparison uses float_value",
			criterion:      "year>=2021",
			wantConstraint: "t.name = ? AND t.float_value >= ?",
			wantArgs:       []interface{}{"year", float64(2021)},
		},
		{
			name:           "structured equality uses structured_value",
			criterion:      `cast=["alice"]`,
			wantConstraint: "t.name = ? AND t.structured_value = ?",
			wantArgs:       []interface{}{"cast", `["alice"]`},
		},
		{
			name:           "regexp uses the REGEXP function",
			criterion:      "title~/^Black",
			wantConstraint: "t.name = ? AND t.string_value REGEXP ?",
			wantArgs:       []interface{}{"title", "^Black"},
		},
		{
			name:           "date equality uses float_value unixtime",
			criterion:      "premiere=2019-04-26",
			wantConstraint: "t.name = ? AND t.float_value = ?",
			wantArgs:       []interface{}{"premiere", float64(mustDate(t, "2019-04-26").Unix())},
		},
		{
			name:           "uuid equality uses string_value canonical form",
			criterion:      "ref=6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			wantConstraint: "t.name = ? AND t.string_value = ?",
			wantArgs:       []interface{}{"ref", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			crit, err := ParseCriterion(tc.criterion)
			require.NoError(t, err)
			sqlCrit, ok := crit.(SQLCriterion)
			require.True(t, ok)

			clause, err := sqlCrit.SQLJoin("t")
			require.NoError(t, err)
			assert.Equal(t, "tags", clause.Table)
			assert.Equal(t, "t.entity_id", clause.EntityIDColumn)
			assert.Equal(t, tc.wantConstraint, clause.Constraint)
			assert.Equal(t, tc.wantArgs, clause.Args)
			assert.Equal(t, tc.wantOuter, clause.Outer)
			assert.Equal(t, tc.wantWhere, clause.Where)
		})
	}
}

func TestGlobSQLJoinMatchesArrayMembers(t *testing.T) {
	crit, err := ParseCriterion("cast~al*")
	require.NoError(t, err)
	clause, err := crit.(SQLCriterion).SQLJoin("t")
	require.NoError(t, err)

	assert.Contains(t, clause.Constraint, "t.string_value GLOB ?")
	assert.Contains(t, clause.Constraint, "json_each(t.structured_value)")
	assert.Equal(t, []interface{}{"cast", "al*", "al*"}, clause.Args)
}
