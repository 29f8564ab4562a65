package web

import (
	"time"

	"golang.org/x/sys/unix"
)

// Health reports service liveness and the state of its dependencies.
type Health struct {
	startedAt         time.Time
	musicDir          string
	spotifyConfigured bool
	version           string
}

// NewHealth builds a Health probe for the given library directory.
func NewHealth(musicDir string, spotifyConfigured bool, version string) *Health {
	return &Health{
		startedAt:         time.Now(),
		musicDir:          musicDir,
		spotifyConfigured: spotifyConfigured,
		version:           version,
	}
}

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
	MusicDir          string  `json:"music_dir"`
	StorageWritable   bool    `json:"storage_writable"`
	SpotifyConfigured bool    `json:"spotify_configured"`
}

// Snapshot probes the library directory and returns the current status.
// Status degrades to "degraded" when storage is not writable; the process is
// still alive, so the endpoint keeps returning 200.
func (h *Health) Snapshot() HealthStatus {
	writable := unix.Access(h.musicDir, unix.W_OK) == nil
	status := "ok"
	if !writable {
		status = "degraded"
	}
	return HealthStatus{
		Status:            status,
		Version:           h.version,
		UptimeSeconds:     time.Since(h.startedAt).Seconds(),
		MusicDir:          h.musicDir,
		StorageWritable:   writable,
		SpotifyConfigured: h.spotifyConfigured,
	}
}
