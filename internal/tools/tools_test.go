package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type stubRunner struct {
	name   string
	args   []string
	output []byte
	err    error
	// onRun lets a test create the expected output file, mimicking the
	// real tool.
	onRun func()
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.name = name
	s.args = args
	if s.onRun != nil {
		s.onRun()
	}
	return s.output, s.err
}

func TestDownloadAudioArgs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "track.mp3")
	runner := &stubRunner{onRun: func() {
		os.WriteFile(out, []byte("mp3"), 0o644)
	}}
	y := NewYtdlp("yt-dlp", runner)

	err := y.DownloadAudio(context.Background(), AudioRequest{
		SourceURL:  "https://youtube.com/watch?v=abc",
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("DownloadAudio: %v", err)
	}
	if runner.name != "yt-dlp" {
		t.Errorf("binary = %q", runner.name)
	}
	for _, want := range []string{"https://youtube.com/watch?v=abc", "--no-playlist", "-x", "mp3"} {
		if !slices.Contains(runner.args, want) {
			t.Errorf("args missing %q: %v", want, runner.args)
		}
	}
	if slices.Contains(runner.args, "--embed-thumbnail") {
		t.Errorf("thumbnail embedded without EmbedMetadata: %v", runner.args)
	}
}

func TestDownloadAudioEmbedMetadata(t *testing.T) {
	out := filepath.Join(t.TempDir(), "track.mp3")
	runner := &stubRunner{onRun: func() {
		os.WriteFile(out, []byte("mp3"), 0o644)
	}}
	y := NewYtdlp("yt-dlp", runner)

	err := y.DownloadAudio(context.Background(), AudioRequest{
		SourceURL:     "https://youtube.com/watch?v=abc",
		OutputPath:    out,
		EmbedMetadata: true,
	})
	if err != nil {
		t.Fatalf("DownloadAudio: %v", err)
	}
	if !slices.Contains(runner.args, "--embed-thumbnail") || !slices.Contains(runner.args, "--add-metadata") {
		t.Errorf("embed flags missing: %v", runner.args)
	}
}

func TestDownloadAudioMissingOutput(t *testing.T) {
	runner := &stubRunner{}
	y := NewYtdlp("yt-dlp", runner)

	err := y.DownloadAudio(context.Background(), AudioRequest{
		SourceURL:  "https://youtube.com/watch?v=abc",
		OutputPath: filepath.Join(t.TempDir(), "never-created.mp3"),
	})
	if !errors.Is(err, ErrOutputMissing) {
		t.Fatalf("err = %v, want ErrOutputMissing", err)
	}
}

func TestDownloadAudioTemplatePathSkipsVerification(t *testing.T) {
	runner := &stubRunner{}
	y := NewYtdlp("yt-dlp", runner)

	err := y.DownloadAudio(context.Background(), AudioRequest{
		SourceURL:  "https://youtube.com/watch?v=abc",
		OutputPath: "/music/%(title)s.%(ext)s",
	})
	if err != nil {
		t.Fatalf("DownloadAudio with template path: %v", err)
	}
}

func TestDownloadAudioToolError(t *testing.T) {
	runner := &stubRunner{output: []byte("ERROR: unsupported url"), err: errors.New("exit status 1")}
	y := NewYtdlp("yt-dlp", runner)

	err := y.DownloadAudio(context.Background(), AudioRequest{
		SourceURL:  "https://example.com/nope",
		OutputPath: "/tmp/out.mp3",
	})
	var terr *ToolError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %T, want *ToolError", err)
	}
	if terr.Tool != "yt-dlp" || !strings.Contains(terr.Error(), "unsupported url") {
		t.Errorf("unexpected error: %v", terr)
	}
}

func TestTagWithCoverArgs(t *testing.T) {
	runner := &stubRunner{}
	f := NewFFmpeg("ffmpeg", runner)

	err := f.TagWithCover(context.Background(), "/tmp/a.mp3", "/tmp/c.jpg", "/music/out.mp3", TagSpec{
		Title:  "Song",
		Artist: "Artist",
		Album:  "Record",
		Date:   "2021-06-04",
	})
	if err != nil {
		t.Fatalf("TagWithCover: %v", err)
	}
	if runner.name != "ffmpeg" {
		t.Errorf("binary = %q", runner.name)
	}
	joined := strings.Join(runner.args, " ")
	for _, want := range []string{
		"/tmp/a.mp3",
		"/tmp/c.jpg",
		"/music/out.mp3",
		"title=Song",
		"artist=Artist",
		"album=Record",
		"date=2021-06-04",
		"title=Album cover",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("ffmpeg args missing %q: %v", want, runner.args)
		}
	}
	if !strings.Contains(joined, "-c copy") {
		t.Errorf("stream copy missing: %v", runner.args)
	}
}

func TestTagWithCoverOmitsEmptyFields(t *testing.T) {
	runner := &stubRunner{}
	f := NewFFmpeg("ffmpeg", runner)

	err := f.TagWithCover(context.Background(), "/tmp/a.mp3", "/tmp/c.jpg", "/music/out.mp3", TagSpec{
		Title:  "Song",
		Artist: "Artist",
	})
	if err != nil {
		t.Fatalf("TagWithCover: %v", err)
	}
	joined := strings.Join(runner.args, " ")
	if strings.Contains(joined, "album=") || strings.Contains(joined, "date=") {
		t.Errorf("empty tags leaked into args: %v", runner.args)
	}
}

func TestOverrideArtistMissingSource(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.mp3")
	err := OverrideArtist(filepath.Join(t.TempDir(), "missing.mp3"), dst, "Artist")
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, statErr := os.Stat(dst); statErr == nil {
		t.Error("destination left behind after failure")
	}
}

func TestOverrideArtistBadMP3RemovesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp3")
	os.WriteFile(src, []byte("not an mp3 at all"), 0o644)
	dst := filepath.Join(dir, "out.mp3")

	if err := OverrideArtist(src, dst, "Artist"); err == nil {
		// bogem/id3v2 tolerates tagless files by treating them as having
		// no tag, so a nil error is acceptable; the tag must then exist.
		tagged, readErr := os.ReadFile(dst)
		if readErr != nil || len(tagged) == 0 {
			t.Fatalf("destination unreadable after tagging: %v", readErr)
		}
		return
	}
	if _, statErr := os.Stat(dst); statErr == nil {
		t.Error("destination left behind after failure")
	}
}
