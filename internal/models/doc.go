// Package models defines the data model for the track enrichment pipeline.
//
// The package contains three groups of types:
//
// 1. Input rows: the tabular dataset as loaded from disk
//   - [TrackRow] : one track with its audio features
//   - [Dataset] : rows plus the header they were read with
//
// 2. Enrichment: catalog data keyed by track ID
//   - [Metadata] : release year, artwork, preview, ISRC country and region for one track
//   - [Lookup] : the accumulated ID → [Metadata] table built batch by batch
//   - [EnrichedTrack] : a [TrackRow] joined with its [Metadata] and formatted duration
//
// 3. Output: [ExportedTrack], one object of the written JSON export, used when reading an export back for summaries.
package models
