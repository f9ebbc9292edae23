package dataset_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/enrichr/internal/dataset"
	"github.com/desertthunder/enrichr/internal/models"
	"github.com/desertthunder/enrichr/internal/shared"
)

const sample = `,track_id,artists,album_name,track_name,popularity,duration_ms,explicit,danceability,energy,tempo,track_genre
0,5SuOikwiRyPMVoIQDJUgSV,Gen Hoshino,Comedy,Comedy,73,230666,False,0.676,0.461,87.917,acoustic
1,4qPNDBW1i3p13qLCt0Ki3A,Ben Woodward,Ghost (Acoustic),Ghost - Acoustic,55,149610,False,0.42,0.166,77.489,acoustic
2,1iJBSr7s7jYXzM8EGcbK5b,Ingrid Michaelson;ZAYN,To Begin Again,To Begin Again,12,210826,False,0.438,0.359,76.332,acoustic
3,5SuOikwiRyPMVoIQDJUgSV,Gen Hoshino,Comedy,Comedy,73,230666,False,0.676,0.461,87.917,j-pop
`

func TestRead(t *testing.T) {
	t.Parallel()

	ds, err := dataset.Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, ds.Rows, 4)

	assert.True(t, ds.HasColumn(models.ColTempo))
	assert.False(t, ds.HasColumn(models.ColYear))

	row := ds.Rows[0]
	assert.Equal(t, "5SuOikwiRyPMVoIQDJUgSV", row.ID)
	assert.Equal(t, "Comedy", row.Name)
	assert.Equal(t, "Gen Hoshino", row.Artists)
	assert.Equal(t, 73, row.Popularity)
	require.NotNil(t, row.DurationMS)
	assert.InDelta(t, 230666, *row.DurationMS, 0)
	require.NotNil(t, row.Danceability)
	assert.InDelta(t, 0.676, *row.Danceability, 1e-9)
	require.NotNil(t, row.Tempo)
	assert.InDelta(t, 87.917, *row.Tempo, 1e-9)
	assert.Equal(t, "acoustic", row.Genre)

	assert.Equal(t, "Ingrid Michaelson;ZAYN", ds.Rows[2].Artists)
}

func TestReadOptionalColumns(t *testing.T) {
	t.Parallel()

	ds, err := dataset.Read(strings.NewReader("track_id,popularity,duration_ms\nabc,40,\n"))
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)

	row := ds.Rows[0]
	assert.Nil(t, row.DurationMS)
	assert.Nil(t, row.Tempo)
	assert.Empty(t, row.Name)
	assert.False(t, ds.HasColumn(models.ColTempo))
}

func TestReadUnparsablePopularity(t *testing.T) {
	t.Parallel()

	ds, err := dataset.Read(strings.NewReader("track_id,popularity\na,n/a\nb,45.0\n"))
	require.NoError(t, err)

	assert.Equal(t, -1, ds.Rows[0].Popularity)
	assert.Equal(t, 45, ds.Rows[1].Popularity)
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "missing track_id", input: "popularity\n10\n"},
		{name: "missing popularity", input: "track_id\nabc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := dataset.Read(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("existing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "dataset.csv")
		require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

		ds, err := dataset.Load(path)
		require.NoError(t, err)
		assert.Len(t, ds.Rows, 4)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := dataset.Load(filepath.Join(t.TempDir(), "missing.csv"))
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInputNotFound)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

func TestHits(t *testing.T) {
	t.Parallel()

	ds, err := dataset.Read(strings.NewReader(sample))
	require.NoError(t, err)

	hits := dataset.Hits(ds, 30)
	assert.Equal(t, []string{"5SuOikwiRyPMVoIQDJUgSV", "4qPNDBW1i3p13qLCt0Ki3A"}, dataset.IDs(hits))
	assert.Equal(t, "acoustic", hits.Rows[0].Genre, "first occurrence of a duplicate ID is kept")
	assert.Equal(t, ds.Columns, hits.Columns)
	assert.Len(t, ds.Rows, 4, "input dataset is not modified")
}

func TestHitsThresholdIsInclusive(t *testing.T) {
	t.Parallel()

	ds := &models.Dataset{Rows: []models.TrackRow{
		{ID: "a", Popularity: 10},
		{ID: "b", Popularity: 30},
		{ID: "c", Popularity: 40},
		{ID: "", Popularity: 90},
	}}

	assert.Equal(t, []string{"b", "c"}, dataset.IDs(dataset.Hits(ds, 30)))
}
