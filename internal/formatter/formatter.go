// package formatter joins catalog metadata back onto dataset rows and writes the flattened export (JSON, CSV)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/desertthunder/enrichr/internal/models"
	"github.com/desertthunder/enrichr/internal/shared"
)

// JSONIndent is the number of spaces per nesting level in the JSON export.
const JSONIndent = 4

// Projection is the export column order.
var Projection = []string{
	models.ColTrackName,
	models.ColArtists,
	models.ColYear,
	models.ColRegion,
	models.ColCountryCode,
	models.ColImage,
	models.ColPreview,
	models.ColDurationFmt,
	models.ColPopularity,
	models.ColDanceability,
	models.ColEnergy,
	models.ColTempo,
	models.ColGenre,
}

// enrichment columns exist on every row after [Enrich], whatever the input header held.
var enrichmentColumns = []string{
	models.ColYear,
	models.ColRegion,
	models.ColCountryCode,
	models.ColImage,
	models.ColPreview,
	models.ColDurationFmt,
}

// Columns returns the projected columns available for ds, in export order.
func Columns(ds *models.Dataset) []string {
	return lo.Filter(Projection, func(col string, _ int) bool {
		return lo.Contains(enrichmentColumns, col) || ds.HasColumn(col)
	})
}

// Field is one key/value pair of a [Record].
type Field struct {
	Key   string
	Value any
}

// Record is one exported row. Keys keep their projection order when marshaled.
type Record []Field

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the record keys in order.
func (r Record) Keys() []string {
	return lo.Map(r, func(f Field, _ int) string { return f.Key })
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encode(&buf, "", ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encode writes r as an object nested at prefix. An empty indent writes the compact form.
//
// Values go through MarshalNoEscape so text such as "<&>" is kept verbatim.
func (r Record) encode(buf *bytes.Buffer, prefix, indent string) error {
	if len(r) == 0 {
		buf.WriteString("{}")
		return nil
	}

	sep := ":"
	if indent != "" {
		sep = ": "
	}

	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		if indent != "" {
			buf.WriteString("\n" + prefix + indent)
		}

		key, err := json.MarshalNoEscape(f.Key)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteString(sep)

		value, err := json.MarshalNoEscape(f.Value)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", f.Key, err)
		}
		buf.Write(value)
	}
	if indent != "" {
		buf.WriteString("\n" + prefix)
	}
	buf.WriteByte('}')
	return nil
}

// FormatDuration renders milliseconds as minutes:seconds with zero-padded seconds.
//
// Missing or NaN durations render as "0:00". Minutes wrap at 60, so an hour-long track renders as "0:00".
func FormatDuration(ms *float64) string {
	if ms == nil || math.IsNaN(*ms) || math.IsInf(*ms, 0) {
		return "0:00"
	}

	seconds := int(floorMod(*ms/1000, 60))
	minutes := int(floorMod(*ms/(1000*60), 60))
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// floorMod is the modulo whose result has the sign of the divisor.
func floorMod(a, b float64) float64 {
	return a - b*math.Floor(a/b)
}

// Enrich joins row with its lookup entry. The duration is always formatted; Metadata stays nil for unknown IDs.
func Enrich(row models.TrackRow, lookup models.Lookup) models.EnrichedTrack {
	e := models.EnrichedTrack{TrackRow: row, DurationFmt: FormatDuration(row.DurationMS)}
	if md, ok := lookup[row.ID]; ok {
		e.Metadata = &md
	}
	return e
}

// BuildOutput enriches every row, drops the ones that did not resolve to a year and projects the rest.
//
// Output order follows input order. The result is never nil.
func BuildOutput(ds *models.Dataset, lookup models.Lookup) []Record {
	cols := Columns(ds)
	records := make([]Record, 0, len(ds.Rows))

	for _, row := range ds.Rows {
		e := Enrich(row, lookup)
		if !e.Resolved() {
			continue
		}
		records = append(records, project(e, cols))
	}
	return records
}

func project(e models.EnrichedTrack, cols []string) Record {
	r := make(Record, 0, len(cols))
	for _, col := range cols {
		r = append(r, Field{Key: col, Value: value(e, col)})
	}
	return r
}

func value(e models.EnrichedTrack, col string) any {
	md := e.Metadata
	switch col {
	case models.ColTrackName:
		return e.Name
	case models.ColArtists:
		return e.Artists
	case models.ColYear:
		return md.Year
	case models.ColRegion:
		return md.Region
	case models.ColCountryCode:
		return md.CountryCode
	case models.ColImage:
		return optional(md.ImageURL)
	case models.ColPreview:
		return optional(md.PreviewURL)
	case models.ColDurationFmt:
		return e.DurationFmt
	case models.ColPopularity:
		return e.Popularity
	case models.ColDanceability:
		return e.Danceability
	case models.ColEnergy:
		return e.Energy
	case models.ColTempo:
		return e.Tempo
	case models.ColGenre:
		return e.Genre
	default:
		return nil
	}
}

// optional maps empty strings to null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EncodeJSON renders records as an indented array followed by a newline.
func EncodeJSON(records []Record) ([]byte, error) {
	if len(records) == 0 {
		return []byte("[]\n"), nil
	}

	indent := strings.Repeat(" ", JSONIndent)
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n" + indent)
		if err := r.encode(&buf, indent, indent); err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
	}
	buf.WriteString("\n]\n")
	return buf.Bytes(), nil
}

// WriteJSONExport writes records to path, replacing any existing file.
func WriteJSONExport(records []Record, path string) error {
	data, err := EncodeJSON(records)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// EncodeCSV renders records as a table with cols as the header. Null values become empty cells.
func EncodeCSV(records []Record, cols []string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(cols); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		row := make([]string, len(cols))
		for i, col := range cols {
			v, _ := r.Get(col)
			row[i] = cell(v)
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func cell(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case int:
		return strconv.Itoa(v)
	case *float64:
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// WriteCSVExport writes records to path as CSV.
func WriteCSVExport(records []Record, cols []string, path string) error {
	data, err := EncodeCSV(records, cols)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// ReadJSONExport loads a JSON export written by [WriteJSONExport].
func ReadJSONExport(path string) ([]models.ExportedTrack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s: %w", shared.ErrInputNotFound, path, err)
		}
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	var tracks []models.ExportedTrack
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("%w: %s is not an export: %v", shared.ErrInvalidInput, path, err)
	}
	return tracks, nil
}
