package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategoryPrefix(t *testing.T) {
	tests := []struct {
		name       string
		headline   string
		categories []string
		rest       string
	}{
		{
			name:       "single category",
			headline:   "work: fixed the lock ordering",
			categories: []string{"work"},
			rest:       "fixed the lock ordering",
		},
		{
			name:       "multiple categories lowercased",
			headline:   "Work,KERNEL: fixed the lock ordering",
			categories: []string{"work", "kernel"},
			rest:       "fixed the lock ordering",
		},
		{
			name:       "no prefix",
			headline:   "fixed the lock ordering",
			categories: nil,
			rest:       "fixed the lock ordering",
		},
		{
			name:       "colon after a space is not a prefix",
			headline:   "fixed lock: ordering",
			categories: nil,
			rest:       "fixed lock: ordering",
		},
		{
			name:       "digit-leading word is not a category",
			headline:   "9to5: not a category",
			categories: nil,
			rest:       "9to5: not a category",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			categories, rest := parseCategoryPrefix(tt.headline)
			assert.Equal(t, tt.categories, categories)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestSplitCategories(t *testing.T) {
	assert.Equal(t, []string{"work", "kernel"}, splitCategories("Work,,KERNEL"))
	assert.Nil(t, splitCategories(""))
}

func TestExtractLeadingTime(t *testing.T) {
	unixtime, rest, err := extractLeadingTime("2023-11-14 22:13:20 started the build", "2006-01-02 15:04:05")
	require.NoError(t, err)
	assert.Equal(t, "started the build", rest)

	expected := time.Date(2023, 11, 14, 22, 13, 20, 0, time.Local)
	assert.InDelta(t, float64(expected.Unix()), unixtime, 0.001)
}

func TestExtractLeadingTimeErrors(t *testing.T) {
	_, _, err := extractLeadingTime("short", "2006-01-02 15:04:05")
	assert.ErrorContains(t, err, "not enough fields")

	_, _, err = extractLeadingTime("not-a-date either here", "2006-01-02 15:04:05")
	assert.ErrorContains(t, err, "cannot parse")
}

func TestParseWhen(t *testing.T) {
	dt, err := parseWhen("2023-11-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 11, 14, 0, 0, 0, 0, time.Local), dt)

	dt, err = parseWhen("2023-11-14T22:13:20")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.Local), dt)

	_, err = parseWhen("14/11/2023")
	assert.Error(t, err)
}

func TestParseLogTags(t *testing.T) {
	tags, err := parseLogTags([]string{"priority=2", "marker"})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "priority", tags[0].Name)
	assert.Equal(t, int64(2), tags[0].Value)
	assert.Equal(t, "marker", tags[1].Name)
	assert.Nil(t, tags[1].Value)

	_, err = parseLogTags([]string{"-negated"})
	assert.ErrorContains(t, err, "negative tag choice")
}

func TestParseTagChoices(t *testing.T) {
	choices, err := parseTagChoices([]string{"status=\"active\"", "-priority"})
	require.NoError(t, err)
	require.Len(t, choices, 2)

	assert.False(t, choices[0].remove)
	assert.Equal(t, "status", choices[0].tag.Name)
	assert.Equal(t, "active", choices[0].tag.Value)

	assert.True(t, choices[1].remove)
	assert.Equal(t, "priority", choices[1].tag.Name)

	_, err = parseTagChoices([]string{"-9bad"})
	assert.ErrorContains(t, err, "bad tag name")
}

func TestSplitEditedLines(t *testing.T) {
	assert.Equal(t, []string{"a=1", "b=2"}, splitEditedLines("a=1\nb=2\n"))
	assert.Equal(t, []string{"a=1", ""}, splitEditedLines("a=1\n\n"))
	assert.Nil(t, splitEditedLines(""))
}
