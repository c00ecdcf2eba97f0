package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sonroyaalmerol/jukebox/internal/cache"
	"github.com/sonroyaalmerol/jukebox/internal/config"
	"github.com/sonroyaalmerol/jukebox/internal/handlers"
	"github.com/sonroyaalmerol/jukebox/internal/repository"
	"github.com/sonroyaalmerol/jukebox/internal/stream"
	"github.com/sonroyaalmerol/jukebox/internal/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if cfg.SettingsMissing {
		slog.Warn("settings file not found, using environment only", "path", cfg.SettingsPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	version, err := utils.BinaryVersion(ctx, "ffmpeg")
	if err != nil {
		log.Fatalf("ffmpeg not available: %v", err)
	}
	slog.Info("ffmpeg found", "version", version)
	stream.EnsureYtdlp(ctx)

	db, err := repository.OpenDB(cfg.DataDir)
	if err != nil {
		log.Fatal(err)
	}
	repo := repository.NewRepo(db)
	defer repo.Close()

	opts := stream.YtdlpOptions{CookiesPath: cfg.YouTubeCookiesPath, POToken: cfg.YouTubePOToken}
	dl := stream.NewDownloader(stream.NewFetcher(cfg.Downloader, opts))
	fc := cache.NewFileCache(cfg.CacheDir, cfg.CacheLimitBytes, repo, dl)

	bot := handlers.NewBot(cfg, repo, fc)
	if err := bot.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
