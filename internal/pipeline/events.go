package pipeline

import "github.com/tunedock/tunedock/internal/metadata"

// Stage is the externally visible lifecycle stage of a run. Stages only move
// forward; a run never reports downloading after complete or error.
type Stage string

const (
	StageReceived    Stage = "request_received"
	StageDownloading Stage = "downloading"
	StageComplete    Stage = "complete"
	StageError       Stage = "error"
)

// rank orders stages for the monotonicity check. Complete and error share a
// rank: both are terminal and neither may follow the other.
func (s Stage) rank() int {
	switch s {
	case StageReceived:
		return 0
	case StageDownloading:
		return 1
	case StageComplete, StageError:
		return 2
	}
	return -1
}

// Event is one status update for a run, sent to blocking callers as the
// final response body and to streaming callers as SSE frames. Run identifies
// the run for multi-run consumers; it stays out of the SSE payload, which is
// always single-run.
type Event struct {
	Run     string          `json:"-"`
	Stage   Stage           `json:"status"`
	Message string          `json:"message,omitempty"`
	Path    string          `json:"path,omitempty"`
	Meta    *metadata.Track `json:"meta,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// EmitFunc receives run events in order.
type EmitFunc func(Event)

// Result is the terminal outcome of a successful run. Path is empty when the
// download used an output template and the final name is not known.
type Result struct {
	Path string          `json:"path,omitempty"`
	Meta *metadata.Track `json:"meta,omitempty"`
}
