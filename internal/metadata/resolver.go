// Package metadata decides which metadata strategy a download run uses:
// catalog-matched, channel-native, or none. Adapter failures degrade the
// resolution instead of failing it; at worst the caller gets strategy none
// and the original URL.
package metadata

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tunedock/tunedock/internal/similarity"
	"github.com/tunedock/tunedock/internal/spotify"
	"github.com/tunedock/tunedock/internal/youtube"
	"github.com/tunedock/tunedock/internal/ytmusic"
)

// Mode is the caller-requested handling for a download.
type Mode string

const (
	ModeMusic   Mode = "music"
	ModeYouTube Mode = "youtube"
	ModeSimple  Mode = "simple"
)

// Strategy identifies which metadata source a run ended up with. Exactly one
// applies per run.
type Strategy string

const (
	StrategyCatalog Strategy = "catalog"
	StrategyChannel Strategy = "channel"
	StrategyNone    Strategy = "none"
)

// MatchThreshold is the minimum similarity for a catalog result to be
// trusted. A catalog result scoring below it is discarded; a streaming
// candidate must score strictly above it to replace the audio source.
const MatchThreshold = 0.5

// Track is canonical resolved metadata for a run. It is built once and never
// recomputed mid-run.
type Track struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album,omitempty"`
	ReleaseDate string  `json:"date,omitempty"`
	CoverURL    string  `json:"cover,omitempty"`
	ISRC        string  `json:"isrc,omitempty"`
	Confidence  float64 `json:"-"`
}

// Resolution is the resolver's decision for one run.
type Resolution struct {
	Strategy Strategy
	// SourceURL is the URL the audio should actually be fetched from. It is
	// the request URL unless a streaming-catalog candidate matched.
	SourceURL string
	// Track is set only for StrategyCatalog.
	Track *Track
	// Channel is set only for StrategyChannel.
	Channel string
	// Title is the raw page title, possibly probed from the source.
	Title string
}

// CatalogSearcher looks up canonical track records by free text.
type CatalogSearcher interface {
	SearchTrack(ctx context.Context, query string) (*spotify.Track, error)
}

// SongSearcher looks up playable song-typed items by free text.
type SongSearcher interface {
	SearchSongs(ctx context.Context, query string) ([]ytmusic.Song, error)
}

// VideoProber fetches title and channel from the source video itself.
type VideoProber interface {
	Lookup(ctx context.Context, url string) (youtube.VideoInfo, error)
}

// Input is one resolution request.
type Input struct {
	URL     string
	Mode    Mode
	Title   string
	Channel string
}

// Resolver selects a metadata strategy for download requests. Any of the
// collaborators may be nil; the resolver degrades accordingly.
type Resolver struct {
	catalog CatalogSearcher
	songs   SongSearcher
	probe   VideoProber
	log     *slog.Logger
}

// NewResolver builds a Resolver.
func NewResolver(catalog CatalogSearcher, songs SongSearcher, probe VideoProber, log *slog.Logger) *Resolver {
	return &Resolver{catalog: catalog, songs: songs, probe: probe, log: log}
}

// Resolve maps a request to a Resolution. It never returns an error: every
// lookup failure falls back to a lower-fidelity strategy.
func (r *Resolver) Resolve(ctx context.Context, in Input) Resolution {
	title := strings.TrimSpace(in.Title)
	channel := strings.TrimSpace(in.Channel)

	if title == "" && r.probe != nil {
		if info, err := r.probe.Lookup(ctx, in.URL); err == nil {
			title = strings.TrimSpace(info.Title)
			if channel == "" {
				channel = strings.TrimSpace(info.Channel)
			}
		} else {
			r.log.Warn("video metadata probe failed", "url", in.URL, "error", err)
		}
	}

	switch in.Mode {
	case ModeYouTube:
		if channel != "" {
			return Resolution{Strategy: StrategyChannel, SourceURL: in.URL, Channel: channel, Title: title}
		}
		return Resolution{Strategy: StrategyNone, SourceURL: in.URL, Title: title}
	case ModeMusic:
		return r.resolveMusic(ctx, in.URL, title, channel)
	default:
		return Resolution{Strategy: StrategyNone, SourceURL: in.URL, Title: title}
	}
}

func (r *Resolver) resolveMusic(ctx context.Context, url, title, channel string) Resolution {
	fallback := func() Resolution {
		if channel != "" {
			return Resolution{Strategy: StrategyChannel, SourceURL: url, Channel: channel, Title: title}
		}
		return Resolution{Strategy: StrategyNone, SourceURL: url, Title: title}
	}

	clean := CleanTitle(title)
	if r.catalog == nil || clean == "" {
		return fallback()
	}

	found, err := r.catalog.SearchTrack(ctx, clean)
	if err != nil {
		r.log.Info("catalog search miss", "query", clean, "error", err)
		return fallback()
	}

	display := found.JoinedArtists() + " - " + found.Name
	score := similarity.Score(strings.ToLower(clean), strings.ToLower(display))
	if score < MatchThreshold {
		r.log.Info("catalog match discarded", "query", clean, "match", display, "score", score)
		return fallback()
	}

	track := &Track{
		Title:       found.Name,
		Artist:      found.JoinedArtists(),
		Album:       found.Album,
		ReleaseDate: found.ReleaseDate,
		CoverURL:    found.CoverURL,
		ISRC:        found.ISRC,
		Confidence:  score,
	}

	return Resolution{
		Strategy:  StrategyCatalog,
		SourceURL: r.streamSource(ctx, url, track),
		Track:     track,
		Title:     title,
	}
}

// streamSource asks the streaming catalog for a song-typed upload of the
// resolved track. A candidate must score strictly above the threshold;
// otherwise, and on any search failure, the original URL is kept.
func (r *Resolver) streamSource(ctx context.Context, original string, track *Track) string {
	if r.songs == nil {
		return original
	}

	found, err := r.songs.SearchSongs(ctx, track.Artist+" "+track.Title)
	if err != nil {
		r.log.Info("streaming catalog search failed", "track", track.Title, "error", err)
		return original
	}

	target := strings.ToLower(track.Title)
	best := ytmusic.Song{}
	bestScore := 0.0
	for _, song := range found {
		if score := similarity.Score(target, strings.ToLower(song.Name)); score > bestScore {
			bestScore = score
			best = song
		}
	}

	if bestScore > MatchThreshold && best.VideoID != "" {
		r.log.Debug("streaming candidate selected", "track", track.Title, "candidate", best.Name, "score", bestScore)
		return ytmusic.WatchURL(best.VideoID)
	}
	return original
}
