// Package spotify is a thin client for the Spotify Web API track search,
// authenticated with the client-credentials flow. The token is cached
// process-wide and refreshed in the background; pipeline runs only ever read
// it through the token source.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultBaseURL  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	requestTimeout  = 15 * time.Second
)

// ErrNoResults is returned when the catalog has no track for a query.
var ErrNoResults = errors.New("spotify: no matching tracks")

// Track is a canonical catalog record for a single track.
type Track struct {
	Name        string
	Artists     []string
	Album       string
	ReleaseDate string
	CoverURL    string
	ISRC        string
}

// JoinedArtists returns the artist names comma-joined, the display form used
// for both tagging and match scoring.
func (t Track) JoinedArtists() string {
	return strings.Join(t.Artists, ", ")
}

// Client searches the Spotify track catalog.
type Client struct {
	http    *http.Client
	tokens  oauth2.TokenSource
	baseURL string
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL  string
	tokenURL string
	http     *http.Client
}

// WithBaseURL overrides the API base URL (tests).
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithTokenURL overrides the token endpoint (tests).
func WithTokenURL(u string) Option { return func(o *options) { o.tokenURL = u } }

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.http = c } }

// New builds a Client for the given credentials.
func New(clientID, clientSecret string, log *slog.Logger, opts ...Option) *Client {
	o := options{
		baseURL:  defaultBaseURL,
		tokenURL: defaultTokenURL,
		http:     &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}

	creds := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     o.tokenURL,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, o.http)

	return &Client{
		http:    o.http,
		tokens:  creds.TokenSource(ctx),
		baseURL: strings.TrimSuffix(o.baseURL, "/"),
		log:     log,
	}
}

// Token returns a valid access token, fetching one synchronously if the
// cached token is absent or expired.
func (c *Client) Token() (string, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("spotify token: %w", err)
	}
	return tok.AccessToken, nil
}

// StartRefresh keeps the cached token warm on a fixed interval until ctx is
// cancelled. Failures are logged and retried on the next tick.
func (c *Client) StartRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	if _, err := c.Token(); err != nil {
		c.log.Error("initial spotify token fetch failed", "error", err)
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.Token(); err != nil {
					c.log.Warn("spotify token refresh failed", "error", err)
				}
			}
		}
	}()
}

type searchResponse struct {
	Tracks struct {
		Items []struct {
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name        string `json:"name"`
				ReleaseDate string `json:"release_date"`
				Images      []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"album"`
			ExternalIDs struct {
				ISRC string `json:"isrc"`
			} `json:"external_ids"`
		} `json:"items"`
	} `json:"tracks"`
}

// SearchTrack returns the catalog's top track for a free-text query, or
// ErrNoResults when the catalog has nothing.
func (c *Client) SearchTrack(ctx context.Context, query string) (*Track, error) {
	token, err := c.Token()
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify search: unexpected response %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("spotify search: %w", err)
	}
	if len(decoded.Tracks.Items) == 0 {
		return nil, ErrNoResults
	}

	item := decoded.Tracks.Items[0]
	track := &Track{
		Name:        item.Name,
		Album:       item.Album.Name,
		ReleaseDate: item.Album.ReleaseDate,
		ISRC:        item.ExternalIDs.ISRC,
	}
	for _, artist := range item.Artists {
		track.Artists = append(track.Artists, artist.Name)
	}
	if len(item.Album.Images) > 0 {
		track.CoverURL = item.Album.Images[0].URL
	}
	return track, nil
}
