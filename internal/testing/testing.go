// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/desertthunder/enrichr/internal/models"
	"github.com/desertthunder/enrichr/internal/result"
)

const TestToken = "test-token"

// FakeCatalog is a scripted test double for [services.Catalog]
//
// Batch is called with the zero-based call index; when nil every batch resolves to an empty lookup.
type FakeCatalog struct {
	TokenResult result.Of[string]
	Batch       func(call int, ids []string) result.Of[models.Lookup]

	mu    sync.Mutex
	calls [][]string
}

func (f *FakeCatalog) Token(ctx context.Context) result.Of[string] {
	return f.TokenResult
}

func (f *FakeCatalog) FetchBatch(ctx context.Context, ids []string, token string) result.Of[models.Lookup] {
	f.mu.Lock()
	call := len(f.calls)
	f.calls = append(f.calls, append([]string(nil), ids...))
	f.mu.Unlock()

	if f.Batch == nil {
		return result.Ok(models.Lookup{})
	}
	return f.Batch(call, ids)
}

func (f *FakeCatalog) Name() string { return "fake" }

// Calls returns the ID batches received so far, in call order.
func (f *FakeCatalog) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

// SleepRecorder records requested sleeps without blocking.
type SleepRecorder struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (s *SleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.durations = append(s.durations, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *SleepRecorder) Durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.durations...)
}

// Track builds a several-tracks response entry. Empty image or isrc leave the field out; an empty preview is null.
func Track(id, releaseDate, image, preview, isrc string) map[string]any {
	images := []map[string]any{}
	if image != "" {
		images = append(images, map[string]any{"url": image, "height": 640, "width": 640})
	}

	track := map[string]any{
		"id":   id,
		"name": "track " + id,
		"album": map[string]any{
			"id":           "album-" + id,
			"release_date": releaseDate,
			"images":       images,
		},
		"external_ids": map[string]any{},
		"preview_url":  nil,
	}
	if preview != "" {
		track["preview_url"] = preview
	}
	if isrc != "" {
		track["external_ids"] = map[string]any{"isrc": isrc}
	}
	return track
}

// SpotifyAPI is an httptest stand-in for the accounts service and the several-tracks endpoint.
//
// Tracks not in Catalog are returned as null entries. A non-zero TrackStatus or TokenStatus replaces the normal response.
type SpotifyAPI struct {
	Server      *httptest.Server
	Catalog     map[string]map[string]any
	TokenStatus int
	TrackStatus int
	TrackBody   string

	mu          sync.Mutex
	tokenHits   int
	trackHits   int
	lastAuth    string
	lastForm    string
	lastBearers []string
}

// NewSpotifyAPI starts a stub server that is closed when the test ends.
func NewSpotifyAPI(t *testing.T, tracks ...map[string]any) *SpotifyAPI {
	t.Helper()

	api := &SpotifyAPI{Catalog: make(map[string]map[string]any)}
	for _, tr := range tracks {
		api.Catalog[tr["id"].(string)] = tr
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", api.handleToken)
	mux.HandleFunc("GET /v1/tracks", api.handleTracks)

	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Server.Close)
	return api
}

func (a *SpotifyAPI) TokenURL() string { return a.Server.URL + "/api/token" }
func (a *SpotifyAPI) BaseURL() string  { return a.Server.URL + "/v1" }

func (a *SpotifyAPI) handleToken(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	a.mu.Lock()
	a.tokenHits++
	a.lastAuth = r.Header.Get("Authorization")
	a.lastForm = string(body)
	status := a.TokenStatus
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"error":"invalid_client","error_description":"Invalid client"}`)
		return
	}
	_, _ = io.WriteString(w, `{"access_token":"`+TestToken+`","token_type":"Bearer","expires_in":3600}`)
}

func (a *SpotifyAPI) handleTracks(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.trackHits++
	a.lastBearers = append(a.lastBearers, r.Header.Get("Authorization"))
	status, body := a.TrackStatus, a.TrackBody
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
		return
	}

	ids := strings.Split(r.URL.Query().Get("ids"), ",")
	tracks := make([]map[string]any, len(ids))
	for i, id := range ids {
		tracks[i] = a.Catalog[id]
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"tracks": tracks})
}

func (a *SpotifyAPI) TokenHits() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokenHits
}

func (a *SpotifyAPI) TrackHits() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trackHits
}

// LastTokenRequest returns the Authorization header and form body of the most recent token request.
func (a *SpotifyAPI) LastTokenRequest() (auth, form string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAuth, a.lastForm
}

// Bearers returns the Authorization header of every track request.
func (a *SpotifyAPI) Bearers() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.lastBearers...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// WriteFile writes content into dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := dir + string(os.PathSeparator) + name
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
