// Package ytmusic queries YouTube Music's InnerTube search endpoint for
// song-typed results. The API key and client context are scraped from the
// web player's ytcfg blob and cached for the life of the process.
package ytmusic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://music.youtube.com"
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	requestTimeout = 15 * time.Second

	// Search filter restricting results to items typed as songs.
	songSearchParams = "EgWKAQIIAWoKEAkQBRAKEAMQBA=="
)

// Song is one playable song-typed search result.
type Song struct {
	VideoID string
	Name    string
	Artist  string
}

// WatchURL returns the streaming URL for a song's video ID.
func WatchURL(videoID string) string {
	return defaultBaseURL + "/watch?v=" + url.QueryEscape(videoID)
}

type innertubeConfig struct {
	apiKey  string
	context map[string]any
}

// Client performs song searches against YouTube Music.
type Client struct {
	http    *http.Client
	baseURL string

	mu  sync.Mutex
	cfg *innertubeConfig
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the YouTube Music origin (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a Client.
func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var ytcfgRe = regexp.MustCompile(`(?s)ytcfg\.set\((\{.*?\})\);`)

func (c *Client) config(ctx context.Context) (*innertubeConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg != nil {
		return c.cfg, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response %d from YouTube Music", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	match := ytcfgRe.FindSubmatch(body)
	if match == nil {
		return nil, errors.New("ytcfg.set data not found in YouTube Music page")
	}

	var decoded struct {
		APIKey  string         `json:"INNERTUBE_API_KEY"`
		Context map[string]any `json:"INNERTUBE_CONTEXT"`
	}
	if err := json.Unmarshal(match[1], &decoded); err != nil {
		return nil, err
	}
	if decoded.APIKey == "" || len(decoded.Context) == 0 {
		return nil, errors.New("missing innertube config in YouTube Music page")
	}

	c.cfg = &innertubeConfig{apiKey: decoded.APIKey, context: decoded.Context}
	return c.cfg, nil
}

// SearchSongs runs a song-filtered search and returns every playable result.
func (c *Client) SearchSongs(ctx context.Context, query string) ([]Song, error) {
	cfg, err := c.config(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"context": cfg.context,
		"query":   query,
		"params":  songSearchParams,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/youtubei/v1/search?key=" + url.QueryEscape(cfg.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response %d from YouTube Music search", resp.StatusCode)
	}

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	songs := extractSongs(decoded)
	if len(songs) == 0 {
		return nil, errors.New("no song results in YouTube Music response")
	}
	return songs, nil
}

// extractSongs walks the response for song list items wherever the renderer
// tree decided to put them.
func extractSongs(payload map[string]any) []Song {
	var songs []Song
	queue := []any{payload}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		switch value := node.(type) {
		case map[string]any:
			if item := asMap(value["musicResponsiveListItemRenderer"]); item != nil {
				if song, ok := parseSong(item); ok {
					songs = append(songs, song)
				}
				continue
			}
			for _, child := range value {
				switch child.(type) {
				case map[string]any, []any:
					queue = append(queue, child)
				}
			}
		case []any:
			for _, child := range value {
				switch child.(type) {
				case map[string]any, []any:
					queue = append(queue, child)
				}
			}
		}
	}
	return songs
}

func parseSong(renderer map[string]any) (Song, bool) {
	song := Song{
		VideoID: getString(getPath(renderer, "playlistItemData", "videoId")),
		Name:    columnText(renderer, 0),
		Artist:  runTextByPageType(renderer, "MUSIC_PAGE_TYPE_ARTIST"),
	}
	if song.VideoID == "" {
		song.VideoID = videoIDFromRuns(renderer)
	}
	if song.Artist == "" {
		song.Artist = columnText(renderer, 1)
	}
	if song.VideoID == "" || song.Name == "" {
		return Song{}, false
	}
	return song, true
}

func runTextByPageType(renderer map[string]any, pageType string) string {
	for _, col := range asSlice(renderer["flexColumns"]) {
		colRenderer := asMap(asMap(col)["musicResponsiveListItemFlexColumnRenderer"])
		if colRenderer == nil {
			continue
		}
		for _, run := range asSlice(getPath(colRenderer, "text", "runs")) {
			runMap := asMap(run)
			got := getString(getPath(runMap, "navigationEndpoint", "browseEndpoint",
				"browseEndpointContextSupportedConfigs", "browseEndpointContextMusicConfig", "pageType"))
			if got == pageType {
				if text := getString(runMap["text"]); text != "" {
					return text
				}
			}
		}
	}
	return ""
}

func videoIDFromRuns(renderer map[string]any) string {
	for _, col := range asSlice(renderer["flexColumns"]) {
		colRenderer := asMap(asMap(col)["musicResponsiveListItemFlexColumnRenderer"])
		if colRenderer == nil {
			continue
		}
		for _, run := range asSlice(getPath(colRenderer, "text", "runs")) {
			if id := getString(getPath(asMap(run), "navigationEndpoint", "watchEndpoint", "videoId")); id != "" {
				return id
			}
		}
	}
	return ""
}

func columnText(renderer map[string]any, index int) string {
	cols := asSlice(renderer["flexColumns"])
	if index < 0 || index >= len(cols) {
		return ""
	}
	colRenderer := asMap(asMap(cols[index])["musicResponsiveListItemFlexColumnRenderer"])
	if colRenderer == nil {
		return ""
	}
	var b strings.Builder
	for _, run := range asSlice(getPath(colRenderer, "text", "runs")) {
		if text, ok := asMap(run)["text"].(string); ok {
			b.WriteString(text)
		}
	}
	return b.String()
}

func asMap(value any) map[string]any {
	m, _ := value.(map[string]any)
	return m
}

func asSlice(value any) []any {
	s, _ := value.([]any)
	return s
}

func getPath(value map[string]any, keys ...string) any {
	var current any = value
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

func getString(value any) string {
	s, _ := value.(string)
	return s
}
