// Package pipeline turns one download request into a tagged MP3 in the
// music library, reporting progress through ordered events.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/tunedock/tunedock/internal/metadata"
	"github.com/tunedock/tunedock/internal/tools"
)

// ErrMissingURL reports a request without a source URL. It is checked by the
// web layer to distinguish caller errors from run failures.
var ErrMissingURL = errors.New("request is missing a url")

// Request is one download request as received from a client.
type Request struct {
	URL      string
	Mode     metadata.Mode
	Title    string
	Channel  string
	Username string
}

// Resolver selects a metadata strategy for a request.
type Resolver interface {
	Resolve(ctx context.Context, in metadata.Input) metadata.Resolution
}

// AudioDownloader fetches a source as MP3.
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, req tools.AudioRequest) error
}

// CoverTagger merges audio with cover art and catalog tags.
type CoverTagger interface {
	TagWithCover(ctx context.Context, audioPath, coverPath, outputPath string, spec tools.TagSpec) error
}

// Orchestrator runs download requests end to end.
type Orchestrator struct {
	resolver Resolver
	ytdlp    AudioDownloader
	tagger   CoverTagger
	http     *http.Client
	musicDir string
	log      *slog.Logger

	// overrideArtist and newID are swapped out in tests.
	overrideArtist func(src, dst, artist string) error
	newID          func() string
}

// NewOrchestrator wires an Orchestrator. musicDir must already be absolute.
func NewOrchestrator(resolver Resolver, ytdlp AudioDownloader, tagger CoverTagger, httpClient *http.Client, musicDir string, log *slog.Logger) *Orchestrator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Orchestrator{
		resolver:       resolver,
		ytdlp:          ytdlp,
		tagger:         tagger,
		http:           httpClient,
		musicDir:       musicDir,
		log:            log,
		overrideArtist: tools.OverrideArtist,
		newID:          uuid.NewString,
	}
}

// run tracks per-run state. emit enforces forward-only stages.
type run struct {
	id    string
	emit  EmitFunc
	stage Stage
	temps []string
}

func (r *run) send(ev Event) {
	if ev.Stage.rank() < r.stage.rank() {
		return
	}
	r.stage = ev.Stage
	ev.Run = r.id
	if r.emit != nil {
		r.emit(ev)
	}
}

func (r *run) cleanup() {
	for _, path := range r.temps {
		os.Remove(path)
	}
}

// Run executes one request. Events are emitted in stage order; the terminal
// event is always either complete or error. The returned Result mirrors the
// complete event for blocking callers.
func (o *Orchestrator) Run(ctx context.Context, req Request, emit EmitFunc) (*Result, error) {
	r := &run{id: o.newID(), emit: emit, stage: StageReceived}
	defer r.cleanup()

	log := o.log.With("run", r.id, "url", req.URL)

	if strings.TrimSpace(req.URL) == "" {
		r.send(Event{Stage: StageError, Error: "invalid request", Message: ErrMissingURL.Error()})
		return nil, ErrMissingURL
	}

	r.send(Event{Stage: StageReceived, Message: "Request received"})

	res := o.resolver.Resolve(ctx, metadata.Input{
		URL:     req.URL,
		Mode:    req.Mode,
		Title:   req.Title,
		Channel: req.Channel,
	})
	log.Info("strategy resolved", "strategy", res.Strategy, "source", res.SourceURL)

	userDir, err := o.userDir(req.Username)
	if err != nil {
		return nil, r.fail(log, "preparing library directory", err)
	}

	r.send(Event{Stage: StageDownloading, Message: "Downloading audio"})

	var result *Result
	switch res.Strategy {
	case metadata.StrategyCatalog:
		result, err = o.runCatalog(ctx, r, userDir, res)
	case metadata.StrategyChannel:
		result, err = o.runChannel(ctx, r, userDir, res)
	default:
		result, err = o.runSimple(ctx, r, userDir, res)
	}
	if err != nil {
		return nil, r.fail(log, "download failed", err)
	}

	log.Info("run complete", "path", result.Path)
	r.send(Event{Stage: StageComplete, Message: "Download complete", Path: result.Path, Meta: result.Meta})
	return result, nil
}

func (r *run) fail(log *slog.Logger, msg string, err error) error {
	log.Error(msg, "error", err)
	r.send(Event{Stage: StageError, Error: err.Error(), Message: msg})
	return err
}

// runCatalog downloads the raw audio and merges it with fetched cover art
// and catalog tags in one ffmpeg pass.
func (o *Orchestrator) runCatalog(ctx context.Context, r *run, userDir string, res metadata.Resolution) (*Result, error) {
	track := res.Track

	tmpAudio := filepath.Join(userDir, r.id+".audio.mp3")
	tmpCover := filepath.Join(userDir, r.id+".cover.jpg")
	r.temps = append(r.temps, tmpAudio, tmpCover)

	if err := o.fetchCover(ctx, track.CoverURL, tmpCover); err != nil {
		return nil, fmt.Errorf("fetching cover art: %w", err)
	}

	if err := o.ytdlp.DownloadAudio(ctx, tools.AudioRequest{
		SourceURL:  res.SourceURL,
		OutputPath: tmpAudio,
	}); err != nil {
		return nil, err
	}

	final := filepath.Join(userDir, SanitizeFileName(track.Artist+" - "+track.Title)+".mp3")
	if err := o.tagger.TagWithCover(ctx, tmpAudio, tmpCover, final, tools.TagSpec{
		Title:  track.Title,
		Artist: track.Artist,
		Album:  track.Album,
		Date:   track.ReleaseDate,
	}); err != nil {
		return nil, err
	}

	return &Result{Path: final, Meta: track}, nil
}

// runChannel keeps the source's own embedded metadata and thumbnail but
// rewrites the artist tag to the channel name.
func (o *Orchestrator) runChannel(ctx context.Context, r *run, userDir string, res metadata.Resolution) (*Result, error) {
	tmpAudio := filepath.Join(userDir, r.id+".audio.mp3")
	r.temps = append(r.temps, tmpAudio)

	if err := o.ytdlp.DownloadAudio(ctx, tools.AudioRequest{
		SourceURL:     res.SourceURL,
		OutputPath:    tmpAudio,
		EmbedMetadata: true,
	}); err != nil {
		return nil, err
	}

	name := SanitizeFileName(metadata.CleanTitle(res.Title))
	if name == "" {
		name = SanitizeFileName(res.Title)
	}
	if name == "" {
		name = "download-" + r.id
	}
	final := filepath.Join(userDir, name+".mp3")

	if err := o.overrideArtist(tmpAudio, final, res.Channel); err != nil {
		return nil, fmt.Errorf("rewriting artist tag: %w", err)
	}

	return &Result{Path: final}, nil
}

// runSimple lets yt-dlp name the file itself; the final path is not
// reported.
func (o *Orchestrator) runSimple(ctx context.Context, _ *run, userDir string, res metadata.Resolution) (*Result, error) {
	err := o.ytdlp.DownloadAudio(ctx, tools.AudioRequest{
		SourceURL:     res.SourceURL,
		OutputPath:    filepath.Join(userDir, "%(title)s.%(ext)s"),
		EmbedMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (o *Orchestrator) fetchCover(ctx context.Context, url, dest string) error {
	if url == "" {
		return errors.New("track has no cover art")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("cover art fetch returned status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// userDir returns the per-user library directory, creating it if needed.
func (o *Orchestrator) userDir(username string) (string, error) {
	name := SanitizeFileName(username)
	if name == "" {
		name = "default"
	}
	dir := filepath.Join(o.musicDir, "Users", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

const maxFileNameRunes = 150

// SanitizeFileName strips characters that are unsafe in file names,
// collapses whitespace and caps the length.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(`<>:"/\|?*`, r) || unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	clean := strings.Join(strings.Fields(b.String()), " ")
	runes := []rune(clean)
	if len(runes) > maxFileNameRunes {
		clean = strings.TrimSpace(string(runes[:maxFileNameRunes]))
	}
	return clean
}
