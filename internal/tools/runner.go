// Package tools wraps the external binaries the pipeline shells out to
// (yt-dlp and ffmpeg) plus in-process MP3 tag rewriting. Command execution
// goes through the Runner interface so the pipeline is testable without
// either binary installed.
package tools

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandRunner runs commands through os/exec.
type CommandRunner struct{}

func (CommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ToolError carries the tool name and its captured output alongside the
// underlying exec error, so callers can log what the tool actually said.
type ToolError struct {
	Tool   string
	Output []byte
	Err    error
}

func (e *ToolError) Error() string {
	if len(e.Output) == 0 {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Output)
}

func (e *ToolError) Unwrap() error { return e.Err }
