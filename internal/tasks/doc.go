// Package tasks orchestrates track enrichment against a music catalog with real-time progress reporting.
//
// # Core Operations
//
//  1. [Enricher.AcquireToken] : one credential exchange, retried only when retries are enabled
//  2. [Enricher.Enrich] : resolve an ordered ID list batch by batch
//     - splits the IDs into consecutive batches of at most 50
//     - fetches batches strictly one at a time, pausing between them
//     - merges every batch into one lookup, first write wins
//     - records failed batches and carries on
//  3. [Summarize] : headline figures of an export (artists, regions, countries, popularity per year, genres)
//
// # Progress Reporting
//
// Operations take an optional channel of [ProgressUpdate]. Sends use select with default so reporting never blocks the run.
// Every n-th batch (indices 0, n, 2n...) is also logged at info level.
//
// # Retries
//
// With retry_attempts = 0 a batch is fetched exactly once: a rate limited batch waits out the backoff inside the fetcher and is then dropped.
// Higher values retry transient outcomes with a constant delay. Fatal outcomes are never retried.
package tasks
