package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func LoadConfig() (*Config, error) {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.DataDir, "cache")
	}

	set, err := LoadSettings(cfg.SettingsPath)
	switch {
	case err == nil:
		if cfg.DiscordToken == "" {
			cfg.DiscordToken = set.Bot.Token
		}
		cfg.ApplicationID = set.Bot.ID
		cfg.GuildIDs = set.Server.List
	case errors.Is(err, os.ErrNotExist):
		cfg.SettingsMissing = true
	default:
		return nil, err
	}

	pl, err := LoadPlaylist(cfg.PlaylistPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg.Playlist = pl

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	_ = os.MkdirAll(cfg.DataDir, 0o755)
	_ = os.MkdirAll(cfg.CacheDir, 0o755)
	_ = os.MkdirAll(filepath.Join(cfg.CacheDir, "tmp"), 0o755)
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return ErrConfig("DISCORD_TOKEN or bot.token in settings required")
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 100 {
		return ErrConfig("DEFAULT_VOLUME must be between 0 and 100")
	}
	switch c.Downloader {
	case "ytdlp", "kkdai":
	default:
		return ErrConfig("DOWNLOADER must be ytdlp or kkdai")
	}
	if c.MaxConsecutiveFailures < 1 {
		return ErrConfig("MAX_CONSECUTIVE_FAILURES must be at least 1")
	}
	if c.CacheLimitBytes < 0 {
		return ErrConfig("CACHE_LIMIT must not be negative")
	}
	return nil
}

func LoadSettings(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &s, nil
}

func LoadPlaylist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParsePlaylist(f)
}

// ParsePlaylist reads one track id per line. Blank lines are kept; the queue
// drops them when it is built.
func ParsePlaylist(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out = append(out, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}
	return out, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
