// Package youtube resolves basic video metadata for requests that arrive
// without a page title or channel name.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kkdai/youtube/v2"
)

// VideoInfo is the subset of video metadata the resolver cares about.
type VideoInfo struct {
	Title        string
	Channel      string
	ThumbnailURL string
}

// InfoClient is the part of the YouTube data client the probe needs; it
// decouples the probe from the concrete youtube.Client type so tests can
// substitute a mock.
type InfoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
}

// Probe looks up video metadata from the source itself.
type Probe struct {
	client InfoClient
}

// NewProbe builds a Probe backed by the real YouTube client.
func NewProbe() *Probe {
	return &Probe{
		client: &youtube.Client{
			HTTPClient: &http.Client{Timeout: 30 * time.Second},
		},
	}
}

// NewProbeWithClient builds a Probe with a custom client (tests).
func NewProbeWithClient(client InfoClient) *Probe {
	return &Probe{client: client}
}

// Lookup fetches title, channel and the largest thumbnail for a video URL.
func (p *Probe) Lookup(ctx context.Context, url string) (VideoInfo, error) {
	video, err := p.client.GetVideoContext(ctx, url)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("video lookup: %w", err)
	}
	return VideoInfo{
		Title:        video.Title,
		Channel:      video.Author,
		ThumbnailURL: bestThumbnailURL(video.Thumbnails),
	}, nil
}

func bestThumbnailURL(thumbnails youtube.Thumbnails) string {
	bestURL := ""
	var bestArea uint
	for _, thumb := range thumbnails {
		area := thumb.Width * thumb.Height
		if area >= bestArea {
			bestArea = area
			bestURL = thumb.URL
		}
	}
	return bestURL
}
