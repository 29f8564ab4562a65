// Package config loads service configuration from an optional TOML file and
// environment variables. Environment values always win over file values so
// the service can run fully configured from the environment alone.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultAddr            = ":3000"
	DefaultMusicDir        = "./music"
	DefaultLogLevel        = "info"
	DefaultTokenRefresh    = "58m"
	DefaultYtdlpBinary     = "yt-dlp"
	DefaultFFmpegBinary    = "ffmpeg"
	DefaultRequestMaxBytes = 1 << 20
)

// Spotify holds track-catalog credentials. Both fields must be set for
// catalog search to be enabled; otherwise the service falls back to
// channel-native and simple downloads.
type Spotify struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenRefresh string `toml:"token_refresh"`
}

// Configured reports whether catalog search credentials are present.
func (s Spotify) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// RefreshInterval parses TokenRefresh. Validate has already checked the
// value, so the default covers only the zero Config.
func (s Spotify) RefreshInterval() time.Duration {
	d, err := time.ParseDuration(s.TokenRefresh)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTokenRefresh)
	}
	return d
}

// Tools names the external binaries the pipeline invokes.
type Tools struct {
	Ytdlp  string `toml:"ytdlp"`
	FFmpeg string `toml:"ffmpeg"`
}

// Config is the root configuration for the service.
type Config struct {
	Addr     string  `toml:"addr"`
	MusicDir string  `toml:"music_dir"`
	LogLevel string  `toml:"log_level"`
	Spotify  Spotify `toml:"spotify"`
	Tools    Tools   `toml:"tools"`
}

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Addr:     DefaultAddr,
		MusicDir: DefaultMusicDir,
		LogLevel: DefaultLogLevel,
		Spotify: Spotify{
			TokenRefresh: DefaultTokenRefresh,
		},
		Tools: Tools{
			Ytdlp:  DefaultYtdlpBinary,
			FFmpeg: DefaultFFmpegBinary,
		},
	}
}

// Load reads the TOML file at path (if it exists), applies environment
// overrides, and validates the result. An empty path skips the file step.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Pure-env operation is fine.
		case err != nil:
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Addr, "TUNEDOCK_ADDR")
	setFromEnv(&c.MusicDir, "TUNEDOCK_MUSIC_DIR")
	setFromEnv(&c.LogLevel, "TUNEDOCK_LOG_LEVEL")
	setFromEnv(&c.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	setFromEnv(&c.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	setFromEnv(&c.Tools.Ytdlp, "TUNEDOCK_YTDLP")
	setFromEnv(&c.Tools.FFmpeg, "TUNEDOCK_FFMPEG")
}

func setFromEnv(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

// Validate checks the configuration and resolves MusicDir to an absolute
// path. Load calls it; callers that override fields afterwards should call
// it again.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("addr must not be empty")
	}
	if strings.TrimSpace(c.MusicDir) == "" {
		return errors.New("music_dir must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.Tools.Ytdlp == "" || c.Tools.FFmpeg == "" {
		return errors.New("tool binaries must not be empty")
	}
	if d, err := time.ParseDuration(c.Spotify.TokenRefresh); err != nil || d <= 0 {
		return fmt.Errorf("invalid spotify token_refresh %q", c.Spotify.TokenRefresh)
	}
	abs, err := filepath.Abs(c.MusicDir)
	if err != nil {
		return fmt.Errorf("resolving music_dir: %w", err)
	}
	c.MusicDir = abs
	return nil
}

// SlogLevel maps LogLevel to a slog.Level. Validate has already rejected
// unknown values.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
