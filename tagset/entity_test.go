package tagset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityCSVRoundTrip(t *testing.T) {
	entity := testEntity(t, 42, "movie.1", `title="Black Widow" year=2021 seen`)
	entity.Unixtime = 1700000000.25

	row := entity.CSVRow()
	assert.Equal(t, "1700000000.25", row[0])
	assert.Equal(t, "42", row[1])
	assert.Equal(t, "movie.1", row[2])

	back, err := EntityFromCSVRow(row, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.ID, back.ID)
	assert.Equal(t, entity.Name, back.Name)
	assert.Equal(t, entity.Unixtime, back.Unixtime)
	assert.Equal(t, entity.Tags.AsMap(), back.Tags.AsMap())
	assert.False(t, back.Tags.Modified)
}

func TestEntityCSVLogRow(t *testing.T) {
	// log entries have no id and no name
	entity := testEntity(t, 0, "", "headline=hello")
	row := entity.CSVRow()
	assert.Equal(t, "", row[1])
	assert.Equal(t, "", row[2])

	back, err := EntityFromCSVRow(row, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), back.ID)
	assert.Equal(t, "", back.Name)
}

func TestEntityFromCSVRowErrors(t *testing.T) {
	_, err := EntityFromCSVRow([]string{"1.0", "2"}, nil)
	require.Error(t, err, "short row")

	_, err = EntityFromCSVRow([]string{"not-a-time", "", ""}, nil)
	require.Error(t, err, "bad unixtime")

	_, err = EntityFromCSVRow([]string{"1.0", "xyz", ""}, nil)
	require.Error(t, err, "bad id")

	_, err = EntityFromCSVRow([]string{"1.0", "", "", "=bad"}, nil)
	require.Error(t, err, "bad tag field")
}

func TestEntityWhen(t *testing.T) {
	entity := &TaggedEntity{Unixtime: 1700000000}
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), entity.When())
}

func TestEntityFormatTagSet(t *testing.T) {
	entity := testEntity(t, 9, "movie.2", "year=2021")
	kwtags := entity.FormatTagSet()

	assert.Equal(t, int64(2021), kwtags.Value("year"))
	assert.Equal(t, int64(9), kwtags.Value("entity.id"))
	assert.Equal(t, "movie.2", kwtags.Value("entity.name"))
	assert.Equal(t, float64(1700000000), kwtags.Value("entity.unixtime"))
	assert.Equal(t, "2023-11-14T22:13:20", kwtags.Value("entity.isotime"))

	dt, ok := kwtags.Value("entity.datetime").(DateTime)
	require.True(t, ok)
	assert.Equal(t, entity.When(), dt.Time)

	// unnamed log entries omit the id and name tags
	log := testEntity(t, 0, "", "headline=hi")
	kwtags = log.FormatTagSet()
	assert.False(t, kwtags.Has("entity.id"))
	assert.False(t, kwtags.Has("entity.name"))
}
