// package models defines the data model for the track enrichment pipeline
package models

import "slices"

// Column names shared by the input dataset and the export.
const (
	ColTrackID      = "track_id"
	ColTrackName    = "track_name"
	ColArtists      = "artists"
	ColPopularity   = "popularity"
	ColDanceability = "danceability"
	ColEnergy       = "energy"
	ColTempo        = "tempo"
	ColDurationMS   = "duration_ms"
	ColGenre        = "track_genre"

	ColYear        = "year"
	ColRegion      = "region"
	ColCountryCode = "country_code"
	ColImage       = "image"
	ColPreview     = "preview"
	ColDurationFmt = "duration_fmt"
)

// DefaultCountryCode and DefaultRegion are used when a track has no usable ISRC.
const (
	DefaultCountryCode = "XX"
	DefaultRegion      = "Unknown"
)

// TrackRow is one row of the input dataset.
//
// Numeric audio features are nil when the cell was empty or unparsable.
type TrackRow struct {
	ID           string
	Name         string
	Artists      string // Raw artist list as found in the input, e.g. "A;B"
	Popularity   int
	Danceability *float64
	Energy       *float64
	Tempo        *float64
	DurationMS   *float64
	Genre        string
}

// Dataset is the loaded input: the header in file order and the parsed rows.
type Dataset struct {
	Columns []string
	Rows    []TrackRow
}

// HasColumn reports whether the input header contained name.
func (d *Dataset) HasColumn(name string) bool {
	return slices.Contains(d.Columns, name)
}

// WithRows returns a copy of d carrying rows and the same header.
func (d *Dataset) WithRows(rows []TrackRow) *Dataset {
	return &Dataset{Columns: slices.Clone(d.Columns), Rows: rows}
}

// Metadata is the catalog data resolved for one track.
//
// Empty strings mean absent.
type Metadata struct {
	Year        string
	ImageURL    string
	PreviewURL  string
	CountryCode string
	Region      string
}

// Lookup maps track IDs to their resolved [Metadata].
type Lookup map[string]Metadata

// Merge copies entries from other that are not already present and returns how many were added.
//
// Existing entries are never overwritten or removed.
func (l Lookup) Merge(other Lookup) int {
	added := 0
	for id, md := range other {
		if _, exists := l[id]; exists {
			continue
		}
		l[id] = md
		added++
	}
	return added
}

// EnrichedTrack is a [TrackRow] joined with its lookup entry.
//
// Metadata is nil when the track was not resolved.
type EnrichedTrack struct {
	TrackRow
	Metadata    *Metadata
	DurationFmt string
}

// Resolved reports whether the track has a release year and so survives export.
func (e EnrichedTrack) Resolved() bool {
	return e.Metadata != nil && e.Metadata.Year != ""
}

// ExportedTrack is one object of the JSON export.
type ExportedTrack struct {
	TrackName    string   `json:"track_name"`
	Artists      string   `json:"artists"`
	Year         string   `json:"year"`
	Region       string   `json:"region"`
	CountryCode  string   `json:"country_code"`
	Image        *string  `json:"image"`
	Preview      *string  `json:"preview"`
	DurationFmt  string   `json:"duration_fmt"`
	Popularity   int      `json:"popularity"`
	Danceability *float64 `json:"danceability"`
	Energy       *float64 `json:"energy"`
	Tempo        *float64 `json:"tempo"`
	Genre        string   `json:"track_genre"`
}
