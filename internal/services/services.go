// package services defines the interfaces the enrichment pipeline uses to talk to a music catalog
//
// Spotify
package services

import (
	"context"

	"github.com/desertthunder/enrichr/internal/models"
	"github.com/desertthunder/enrichr/internal/result"
)

// TokenSource obtains a bearer token for catalog requests.
type TokenSource interface {
	// Token performs one credential exchange.
	// The outcome is transient when a later attempt could succeed and fatal otherwise.
	Token(ctx context.Context) result.Of[string]
}

// MetadataFetcher resolves catalog metadata for a batch of track IDs.
type MetadataFetcher interface {
	// FetchBatch resolves at most 50 IDs. IDs unknown to the catalog are absent from the lookup.
	// Failed outcomes still carry an empty, non-nil lookup.
	FetchBatch(ctx context.Context, ids []string, token string) result.Of[models.Lookup]
}

// Catalog is a music service that can both authenticate and resolve track metadata.
type Catalog interface {
	TokenSource
	MetadataFetcher

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}
