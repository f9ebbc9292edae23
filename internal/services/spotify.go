// Spotify Web API implementation of [TokenSource] and [MetadataFetcher]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/get-several-tracks
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/desertthunder/enrichr/internal/models"
	"github.com/desertthunder/enrichr/internal/region"
	"github.com/desertthunder/enrichr/internal/result"
	"github.com/desertthunder/enrichr/internal/shared"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRequestTimeout   = 10 * time.Second
	defaultRateLimitBackoff = 5 * time.Second

	maxErrorBody = 64 << 10
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents the album object embedded in a track.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyTrack represents a Spotify track. Album is nil when the catalog omits it.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       *SpotifyAlbum   `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
	Popularity  int             `json:"popularity"`
	PreviewURL  *string         `json:"preview_url"`
}

// severalTracks is the body of GET /tracks. Unknown IDs come back as null entries.
type severalTracks struct {
	Tracks []*SpotifyTrack `json:"tracks"`
}

// SpotifyOpts contains the settings for [NewSpotifyService].
type SpotifyOpts struct {
	ClientID          string
	ClientSecret      string
	TokenURL          string        // defaults to the accounts service
	BaseURL           string        // defaults to the public Web API
	Timeout           time.Duration // per request, defaults to 10s
	RateLimitBackoff  time.Duration // wait after a 429, defaults to 5s
	RequestsPerSecond float64       // 0 disables the client-side ceiling
	HTTPClient        *http.Client  // overrides the timeout-bound default client
	Logger            *log.Logger
	Sleep             shared.SleepFunc
}

// SpotifyService exchanges client credentials for a bearer token and resolves track metadata in batches.
type SpotifyService struct {
	config     *clientcredentials.Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    time.Duration
	sleep      shared.SleepFunc
	logger     *log.Logger
}

// NewSpotifyService creates a new Spotify service with the given client credentials.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}
	if opts.RateLimitBackoff <= 0 {
		opts.RateLimitBackoff = defaultRateLimitBackoff
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Sleep == nil {
		opts.Sleep = shared.Sleep
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &SpotifyService{
		config: &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(limit, 1),
		backoff:    opts.RateLimitBackoff,
		sleep:      opts.Sleep,
		logger:     opts.Logger,
	}, nil
}

// NewSpotifyServiceFromConfig builds a [SpotifyService] from the [spotify] config section.
//
// A nil client, logger or sleep gets the same default as in [NewSpotifyService].
func NewSpotifyServiceFromConfig(c shared.SpotifyConfig, client *http.Client, logger *log.Logger, sleep shared.SleepFunc) (*SpotifyService, error) {
	return NewSpotifyService(SpotifyOpts{
		ClientID:          c.ClientID,
		ClientSecret:      c.ClientSecret,
		TokenURL:          c.TokenURL,
		BaseURL:           c.APIBaseURL,
		Timeout:           c.RequestTimeout.Duration,
		RateLimitBackoff:  c.RateLimitBackoff.Duration,
		RequestsPerSecond: c.RequestsPerSecond,
		HTTPClient:        client,
		Logger:            logger,
		Sleep:             sleep,
	})
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Token performs a single client-credentials exchange (HTTP Basic client auth, grant_type=client_credentials).
//
// Transport failures, timeouts, 429 and 5xx responses are transient; rejected credentials and responses without an access token are fatal.
// The token is not refreshed.
func (s *SpotifyService) Token(ctx context.Context) result.Of[string] {
	if err := s.limiter.Wait(ctx); err != nil {
		return result.Retryable("", fmt.Errorf("%w: %v", shared.ErrAuthFailed, err))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Token(ctx)
	if err != nil {
		res := classifyTokenError(err)
		s.logger.Error("token exchange failed", "kind", res.Kind(), "error", err)
		return res
	}

	if token.AccessToken == "" {
		err := fmt.Errorf("%w: response carried no access token", shared.ErrAuthFailed)
		s.logger.Error("token exchange failed", "kind", result.Fatal, "error", err)
		return result.Failed("", err)
	}

	s.logger.Debug("token acquired", "type", token.TokenType, "expiry", token.Expiry)
	return result.Ok(token.AccessToken)
}

func classifyTokenError(err error) result.Of[string] {
	wrapped := fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		code := retrieveErr.Response.StatusCode
		if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
			return result.Retryable("", wrapped)
		}
		return result.Failed("", wrapped)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) {
		return result.Retryable("", wrapped)
	}

	return result.Failed("", wrapped)
}

// FetchBatch resolves up to 50 track IDs with one GET /tracks request.
//
// Every outcome carries a non-nil lookup; failed outcomes carry an empty one.
// A 429 response blocks for the configured backoff and is then reported as transient without retrying.
func (s *SpotifyService) FetchBatch(ctx context.Context, ids []string, token string) result.Of[models.Lookup] {
	empty := models.Lookup{}

	if len(ids) == 0 {
		return result.Ok(empty)
	}
	if len(ids) > shared.MaxBatchSize {
		return result.Failed(empty, fmt.Errorf("%w: %d track IDs, maximum %d", shared.ErrInvalidInput, len(ids), shared.MaxBatchSize))
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return result.Retryable(empty, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err))
	}

	endpoint := fmt.Sprintf("%s/tracks?ids=%s", s.baseURL, url.QueryEscape(strings.Join(ids, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return result.Failed(empty, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("batch request failed", "ids", len(ids), "error", err)
		return result.Retryable(empty, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err))
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		var body severalTracks
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			s.logger.Warn("failed to decode batch response", "ids", len(ids), "error", err)
			return result.Retryable(empty, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err))
		}
		return result.Ok(ExtractMetadata(body.Tracks, ids))

	case code == http.StatusTooManyRequests:
		s.logger.Warn("rate limited, backing off", "backoff", s.backoff, "retry_after", resp.Header.Get("Retry-After"), "ids", len(ids))
		if err := s.sleep(ctx, s.backoff); err != nil {
			return result.Retryable(empty, fmt.Errorf("%w: %v", shared.ErrRateLimited, err))
		}
		return result.Retryable(empty, shared.ErrRateLimited)

	case code == http.StatusUnauthorized:
		err := s.statusError(resp, shared.ErrTokenExpired)
		s.logger.Warn("batch rejected", "status", code, "error", err)
		return result.Failed(empty, err)

	case code >= http.StatusInternalServerError:
		err := s.statusError(resp, shared.ErrAPIRequest)
		s.logger.Warn("batch failed upstream", "status", code, "error", err)
		return result.Retryable(empty, err)

	default:
		err := s.statusError(resp, shared.ErrAPIRequest)
		s.logger.Warn("batch rejected", "status", code, "error", err)
		return result.Failed(empty, err)
	}
}

// statusError wraps sentinel with the HTTP status and the upstream error message, when the body has one.
func (s *SpotifyService) statusError(resp *http.Response, sentinel error) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = gjson.GetBytes(body, "error_description").String()
	}
	if msg == "" {
		return fmt.Errorf("%w: status %d", sentinel, resp.StatusCode)
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, msg)
}

// ExtractMetadata builds a lookup from a several-tracks response to a request for ids.
//
// Null entries, tracks without an album and tracks whose ID was not requested (relinked or substituted tracks) are skipped.
func ExtractMetadata(tracks []*SpotifyTrack, ids []string) models.Lookup {
	requested := lo.Keyify(ids)
	lookup := make(models.Lookup, len(tracks))
	for _, t := range tracks {
		if t == nil || t.Album == nil {
			continue
		}
		if _, ok := requested[t.ID]; !ok {
			continue
		}
		lookup[t.ID] = TrackMetadata(t)
	}
	return lookup
}

// TrackMetadata extracts release year, cover image, preview and ISRC-derived country/region from a track with an album.
func TrackMetadata(t *SpotifyTrack) models.Metadata {
	md := models.Metadata{
		Year:        prefix(t.Album.ReleaseDate, 4),
		CountryCode: models.DefaultCountryCode,
		Region:      models.DefaultRegion,
	}

	if len(t.Album.Images) > 0 {
		md.ImageURL = t.Album.Images[0].URL
	}

	if t.PreviewURL != nil {
		md.PreviewURL = *t.PreviewURL
	}

	if isrc := t.ExternalIDs.ISRC; utf8.RuneCountInString(isrc) >= 2 {
		md.CountryCode = prefix(isrc, 2)
		md.Region = region.Of(md.CountryCode)
	}

	return md
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
