package sqltags

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagworks/sqltags/tagset"
)

func TestCSVExportImportRoundTrip(t *testing.T) {
	source := openTestStore(t)
	ctx := context.Background()

	fixtures := []struct {
		name string
		tags string
	}{
		{"movie.1", `title="Black Widow" year=2021 seen`},
		{"", `headline="an unnamed log entry" categories=["misc"]`},
	}
	for _, fx := range fixtures {
		tags, err := tagset.ParseTagSetLine(fx.tags, nil)
		require.NoError(t, err)
		_, err = source.Add(ctx, fx.name, 0, tags)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	n, err := source.ExportCSV(ctx, &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	target := openTestStore(t)
	n, err = target.ImportCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	named, err := target.Get(ctx, "movie.1")
	require.NoError(t, err)
	assert.Equal(t, "Black Widow", named.Tags.Value("title"))
	assert.Equal(t, float64(2021), named.Tags.Value("year"))
	assert.True(t, named.Tags.Has("seen"))

	all, err := target.Find(ctx, nil, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestImportCSVBadRow(t *testing.T) {
	store := openTestStore(t)

	n, err := store.ImportCSV(context.Background(),
		strings.NewReader("not-a-time,,name\n"))
	require.Error(t, err)
	assert.Equal(t, 0, n)
}
