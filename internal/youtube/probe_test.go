package youtube

import (
	"context"
	"errors"
	"testing"

	"github.com/kkdai/youtube/v2"
)

type mockInfoClient struct {
	video *youtube.Video
	err   error
}

func (m *mockInfoClient) GetVideoContext(ctx context.Context, url string) (*youtube.Video, error) {
	return m.video, m.err
}

func TestLookup(t *testing.T) {
	probe := NewProbeWithClient(&mockInfoClient{
		video: &youtube.Video{
			Title:  "Artist - Song (Official Video)",
			Author: "ArtistVEVO",
			Thumbnails: youtube.Thumbnails{
				{URL: "https://img/small.jpg", Width: 120, Height: 90},
				{URL: "https://img/large.jpg", Width: 1280, Height: 720},
			},
		},
	})

	info, err := probe.Lookup(context.Background(), "https://youtube.com/watch?v=x")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info.Title != "Artist - Song (Official Video)" {
		t.Fatalf("title = %q", info.Title)
	}
	if info.Channel != "ArtistVEVO" {
		t.Fatalf("channel = %q", info.Channel)
	}
	if info.ThumbnailURL != "https://img/large.jpg" {
		t.Fatalf("thumbnail = %q, want largest", info.ThumbnailURL)
	}
}

func TestLookupError(t *testing.T) {
	probe := NewProbeWithClient(&mockInfoClient{err: errors.New("unavailable")})
	if _, err := probe.Lookup(context.Background(), "https://youtube.com/watch?v=x"); err == nil {
		t.Fatal("expected error")
	}
}
