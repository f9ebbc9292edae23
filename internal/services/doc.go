// Package services defines the [Catalog] interface for music metadata providers and implements it for Spotify.
//
// # Catalog Interface
//
// A catalog provides two operations, split into [TokenSource] and [MetadataFetcher] so the enrichment engine can be tested against either half:
//
//  1. Token : one client-credentials exchange yielding a bearer token
//  2. FetchBatch : resolve up to 50 track IDs into [models.Metadata]
//
// # Spotify Implementation
//
// [SpotifyService] uses [clientcredentials.Config] for the token exchange with HTTP Basic client authentication.
// Tokens are never refreshed: a run uses the token it started with.
//
// Batch lookups call GET /tracks?ids=... and extract, for every track that has an album:
//   - year: first four characters of album.release_date
//   - image: first album image URL
//   - preview: preview_url
//   - country and region: first two characters of the ISRC, bucketed by [region.Of]
//
// # Outcomes
//
// Both operations return [result.Of] instead of (value, error) so callers can tell retryable failures from permanent ones:
//   - transient : transport errors, timeouts, HTTP 429 and 5xx
//   - fatal : rejected credentials, expired tokens, other 4xx
//
// On HTTP 429 the service sleeps for the configured backoff before reporting the batch as transient.
// It does not retry; retries are the caller's decision.
//
// # Error Handling
//
// Errors wrap sentinels from the shared package:
//   - [shared.ErrAuthFailed] : token exchange failed
//   - [shared.ErrTokenExpired] : API answered 401
//   - [shared.ErrRateLimited] : API answered 429
//   - [shared.ErrAPIRequest] : any other request failure
package services
