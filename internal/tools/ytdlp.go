package tools

import (
	"context"
	"errors"
	"os"
)

// ErrOutputMissing reports that yt-dlp exited cleanly but the expected file
// never appeared on disk.
var ErrOutputMissing = errors.New("yt-dlp reported success but produced no output file")

// Ytdlp drives the yt-dlp binary for audio extraction.
type Ytdlp struct {
	Binary string
	runner Runner
}

// NewYtdlp builds a Ytdlp around the given binary path. A nil runner means
// real command execution.
func NewYtdlp(binary string, runner Runner) *Ytdlp {
	if runner == nil {
		runner = CommandRunner{}
	}
	return &Ytdlp{Binary: binary, runner: runner}
}

// AudioRequest is one audio extraction job.
type AudioRequest struct {
	SourceURL  string
	OutputPath string
	// EmbedMetadata asks yt-dlp to embed the source thumbnail and its own
	// metadata into the file. Used when the final tags come from the video
	// itself rather than a catalog record.
	EmbedMetadata bool
}

// DownloadAudio fetches the source as a best-quality MP3 at the requested
// path. OutputPath may contain yt-dlp template variables such as
// %(title)s; path verification is skipped in that case.
func (y *Ytdlp) DownloadAudio(ctx context.Context, req AudioRequest) error {
	args := []string{
		req.SourceURL,
		"-o", req.OutputPath,
		"--no-playlist",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "0",
	}
	if req.EmbedMetadata {
		args = append(args, "--embed-thumbnail", "--add-metadata")
	}

	out, err := y.runner.Run(ctx, y.Binary, args...)
	if err != nil {
		return &ToolError{Tool: "yt-dlp", Output: out, Err: err}
	}

	if !isTemplate(req.OutputPath) {
		if _, err := os.Stat(req.OutputPath); err != nil {
			return ErrOutputMissing
		}
	}
	return nil
}

func isTemplate(path string) bool {
	for i := 0; i+1 < len(path); i++ {
		if path[i] == '%' && path[i+1] == '(' {
			return true
		}
	}
	return false
}
