package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tunedock/tunedock/internal/config"
	"github.com/tunedock/tunedock/internal/metadata"
	"github.com/tunedock/tunedock/internal/pipeline"
	"github.com/tunedock/tunedock/internal/spotify"
	"github.com/tunedock/tunedock/internal/tools"
	"github.com/tunedock/tunedock/internal/web"
	"github.com/tunedock/tunedock/internal/ws"
	"github.com/tunedock/tunedock/internal/youtube"
	"github.com/tunedock/tunedock/internal/ytmusic"
)

const version = "1.0.0"

func main() {
	var (
		configPath = flag.String("config", "", "path to TOML config file")
		addr       = flag.String("addr", "", "listen address (overrides config)")
		musicDir   = flag.String("music-dir", "", "music library directory (overrides config)")
		logLevel   = flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *musicDir != "" {
		cfg.MusicDir = *musicDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	if err := run(&cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.MusicDir, 0o755); err != nil {
		return fmt.Errorf("creating music directory: %w", err)
	}

	var catalog metadata.CatalogSearcher
	if cfg.Spotify.Configured() {
		client := spotify.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, log)
		client.StartRefresh(ctx, cfg.Spotify.RefreshInterval())
		catalog = client
		log.Info("catalog metadata enabled")
	} else {
		log.Warn("spotify credentials not configured, catalog metadata disabled")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resolver := metadata.NewResolver(
		catalog,
		ytmusic.New(ytmusic.WithHTTPClient(httpClient)),
		youtube.NewProbe(),
		log,
	)

	orchestrator := pipeline.NewOrchestrator(
		resolver,
		tools.NewYtdlp(cfg.Tools.Ytdlp, nil),
		tools.NewFFmpeg(cfg.Tools.FFmpeg, nil),
		httpClient,
		cfg.MusicDir,
		log,
	)

	feed := ws.NewHub(log)
	go feed.Run(ctx)

	health := web.NewHealth(cfg.MusicDir, cfg.Spotify.Configured(), version)
	server := web.NewServer(orchestrator, health, feed, log)

	log.Info("listening", "addr", cfg.Addr, "music_dir", cfg.MusicDir)
	return web.ListenAndServe(ctx, cfg.Addr, server.Handler())
}
