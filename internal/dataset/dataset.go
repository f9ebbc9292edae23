// package dataset reads the input track table and selects the rows worth enriching
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/desertthunder/enrichr/internal/models"
	"github.com/desertthunder/enrichr/internal/shared"
)

// Load reads a delimited track table from path.
//
// Columns are located by header name so extra columns (such as an unnamed index) are ignored.
// track_id and popularity are required; every other known column is optional.
func Load(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", shared.ErrInputNotFound, path, err)
		}
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a track table from r. See [Load].
func Read(r io.Reader) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", shared.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	for _, required := range []string{models.ColTrackID, models.ColPopularity} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: missing required column %q", shared.ErrInvalidInput, required)
		}
	}

	ds := &models.Dataset{Columns: header}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		ds.Rows = append(ds.Rows, models.TrackRow{
			ID:           cell(models.ColTrackID),
			Name:         cell(models.ColTrackName),
			Artists:      cell(models.ColArtists),
			Popularity:   parseInt(cell(models.ColPopularity)),
			Danceability: parseFloat(cell(models.ColDanceability)),
			Energy:       parseFloat(cell(models.ColEnergy)),
			Tempo:        parseFloat(cell(models.ColTempo)),
			DurationMS:   parseFloat(cell(models.ColDurationMS)),
			Genre:        cell(models.ColGenre),
		})
	}

	return ds, nil
}

// Hits keeps rows with popularity >= threshold and then drops repeated track IDs, keeping the first occurrence.
//
// Rows without an ID are discarded.
func Hits(ds *models.Dataset, threshold int) *models.Dataset {
	rows := lo.Filter(ds.Rows, func(r models.TrackRow, _ int) bool {
		return r.ID != "" && r.Popularity >= threshold
	})
	rows = lo.UniqBy(rows, func(r models.TrackRow) string { return r.ID })
	return ds.WithRows(rows)
}

// IDs returns the track identifiers of ds in row order.
func IDs(ds *models.Dataset) []string {
	return lo.Map(ds.Rows, func(r models.TrackRow, _ int) string { return r.ID })
}

// parseInt accepts integral and float notation ("35", "35.0"); anything else is -1 so the row never clears a threshold.
func parseInt(s string) int {
	if s == "" {
		return -1
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if f := parseFloat(s); f != nil {
		return int(*f)
	}
	return -1
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
