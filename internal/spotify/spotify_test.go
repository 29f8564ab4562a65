package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTokenServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
}

func TestSearchTrackParsesTopResult(t *testing.T) {
	tokens := newTokenServer(t, nil)
	defer tokens.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "lfz popsicle" {
			t.Errorf("query = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("limit = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"tracks": {"items": [{
				"name": "Popsicle",
				"artists": [{"name": "LFZ"}, {"name": "Someone"}],
				"album": {
					"name": "Popsicle EP",
					"release_date": "2017-08-23",
					"images": [{"url": "https://img.example/cover-large.jpg"}, {"url": "https://img.example/cover-small.jpg"}]
				},
				"external_ids": {"isrc": "USUM71703861"}
			}]}
		}`))
	}))
	defer api.Close()

	client := New("id", "secret", discardLogger(),
		WithTokenURL(tokens.URL), WithBaseURL(api.URL))

	track, err := client.SearchTrack(context.Background(), "lfz popsicle")
	if err != nil {
		t.Fatalf("SearchTrack: %v", err)
	}
	if track.Name != "Popsicle" {
		t.Fatalf("name = %q", track.Name)
	}
	if got := track.JoinedArtists(); got != "LFZ, Someone" {
		t.Fatalf("joined artists = %q", got)
	}
	if track.Album != "Popsicle EP" || track.ReleaseDate != "2017-08-23" {
		t.Fatalf("album fields: %+v", track)
	}
	if track.CoverURL != "https://img.example/cover-large.jpg" {
		t.Fatalf("cover = %q, want first image", track.CoverURL)
	}
	if track.ISRC != "USUM71703861" {
		t.Fatalf("isrc = %q", track.ISRC)
	}
}

func TestSearchTrackNoResults(t *testing.T) {
	tokens := newTokenServer(t, nil)
	defer tokens.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tracks": {"items": []}}`))
	}))
	defer api.Close()

	client := New("id", "secret", discardLogger(),
		WithTokenURL(tokens.URL), WithBaseURL(api.URL))

	_, err := client.SearchTrack(context.Background(), "nothing here")
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}

func TestSearchTrackServerError(t *testing.T) {
	tokens := newTokenServer(t, nil)
	defer tokens.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer api.Close()

	client := New("id", "secret", discardLogger(),
		WithTokenURL(tokens.URL), WithBaseURL(api.URL))

	if _, err := client.SearchTrack(context.Background(), "x"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	var calls atomic.Int64
	tokens := newTokenServer(t, &calls)
	defer tokens.Close()

	client := New("id", "secret", discardLogger(), WithTokenURL(tokens.URL))

	for i := 0; i < 3; i++ {
		if _, err := client.Token(); err != nil {
			t.Fatalf("Token: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("token endpoint called %d times, want 1", got)
	}
}
