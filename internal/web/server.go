// Package web exposes the download pipeline over HTTP: a blocking endpoint,
// an SSE streaming endpoint and a health probe.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tunedock/tunedock/internal/metadata"
	"github.com/tunedock/tunedock/internal/pipeline"
	"github.com/tunedock/tunedock/internal/ws"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

// Runner executes download requests. Satisfied by *pipeline.Orchestrator.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, emit pipeline.EmitFunc) (*pipeline.Result, error)
}

// Server serves the HTTP API.
type Server struct {
	runner Runner
	health *Health
	feed   *ws.Hub
	log    *slog.Logger
}

// NewServer builds a Server. feed may be nil to disable the WebSocket event
// feed.
func NewServer(runner Runner, health *Health, feed *ws.Hub, log *slog.Logger) *Server {
	return &Server{runner: runner, health: health, feed: feed, log: log}
}

type downloadRequest struct {
	URL      string `json:"url"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Channel  string `json:"channelName"`
	Username string `json:"username"`
}

func (d downloadRequest) toPipeline() pipeline.Request {
	mode := metadata.Mode(strings.ToLower(strings.TrimSpace(d.Type)))
	switch mode {
	case metadata.ModeMusic, metadata.ModeYouTube, metadata.ModeSimple:
	default:
		mode = metadata.ModeMusic
	}
	return pipeline.Request{
		URL:      strings.TrimSpace(d.URL),
		Mode:     mode,
		Title:    d.Title,
		Channel:  d.Channel,
		Username: d.Username,
	}
}

// Handler builds the route table. All responses are JSON except the SSE
// stream.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/download", s.handleDownload)
	mux.HandleFunc("/download-stream", s.handleDownloadStream)
	mux.HandleFunc("/health", s.handleHealth)
	if s.feed != nil {
		mux.HandleFunc("/events", s.feed.HandleWS)
	}
	return withCORS(mux)
}

// emitTee forwards events to both the request's own channel and the shared
// feed.
func (s *Server) emitTee(emit pipeline.EmitFunc) pipeline.EmitFunc {
	if s.feed == nil {
		return emit
	}
	return func(ev pipeline.Event) {
		s.feed.Broadcast(ev.Run, ev)
		if emit != nil {
			emit(ev)
		}
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	if req.URL == "" {
		writeJSONError(w, http.StatusBadRequest, pipeline.ErrMissingURL.Error())
		return
	}

	result, err := s.runner.Run(r.Context(), req, s.emitTee(nil))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrMissingURL) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{
			"error":   "download failed",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Download complete",
		"path":    result.Path,
		"meta":    result.Meta,
	})
}

func (s *Server) handleDownloadStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	// Reject before committing to a stream, so the client gets a real
	// status code.
	if req.URL == "" {
		writeJSONError(w, http.StatusBadRequest, pipeline.ErrMissingURL.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	_, err := s.runner.Run(r.Context(), req, s.emitTee(func(ev pipeline.Event) {
		writeSSEEvent(w, flusher, enc, ev)
	}))
	if err != nil {
		// The terminal error event was already streamed.
		s.log.Warn("streamed run failed", "url", req.URL, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.health.Snapshot())
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	var body downloadRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return pipeline.Request{}, false
	}
	return body.toPipeline(), true
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Streamed downloads hold the response open for the whole run.
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   "error",
		"message": message,
	})
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, enc *json.Encoder, ev pipeline.Event) {
	fmt.Fprintf(w, "event: status\n")
	fmt.Fprintf(w, "data: ")
	_ = enc.Encode(ev)
	fmt.Fprintf(w, "\n")
	flusher.Flush()
}
