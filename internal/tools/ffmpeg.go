package tools

import (
	"context"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FFmpeg merges a downloaded audio file with cover art and writes catalog
// tags, producing the final MP3.
type FFmpeg struct {
	Binary string
	runner Runner
}

// NewFFmpeg builds an FFmpeg around the given binary path. A nil runner
// means real command execution.
func NewFFmpeg(binary string, runner Runner) *FFmpeg {
	if runner == nil {
		runner = CommandRunner{}
	}
	return &FFmpeg{Binary: binary, runner: runner}
}

// TagSpec is the metadata written into the output file.
type TagSpec struct {
	Title  string
	Artist string
	Album  string
	Date   string
}

// TagWithCover copies the audio stream from audioPath, attaches coverPath as
// front cover art and writes the tags, all without re-encoding.
func (f *FFmpeg) TagWithCover(ctx context.Context, audioPath, coverPath, outputPath string, spec TagSpec) error {
	meta := []string{
		"title=" + spec.Title,
		"artist=" + spec.Artist,
	}
	if spec.Album != "" {
		meta = append(meta, "album="+spec.Album)
	}
	if spec.Date != "" {
		meta = append(meta, "date="+spec.Date)
	}

	args := ffmpeg.Output(
		[]*ffmpeg.Stream{ffmpeg.Input(audioPath), ffmpeg.Input(coverPath)},
		outputPath,
		ffmpeg.KwArgs{
			"map":           []string{"0", "1"},
			"c":             "copy",
			"id3v2_version": "3",
			"metadata":      meta,
			"metadata:s:v":  []string{"title=Album cover", "comment=Cover (front)"},
		},
	).OverWriteOutput().GetArgs()

	out, err := f.runner.Run(ctx, f.Binary, args...)
	if err != nil {
		return &ToolError{Tool: "ffmpeg", Output: out, Err: err}
	}
	return nil
}
