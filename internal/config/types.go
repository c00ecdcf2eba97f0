package config

import "time"

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`

	DataDir         string `env:"DATA_DIR" envDefault:"./data"`
	CacheDir        string `env:"CACHE_DIR"`
	CacheLimitBytes int64  `env:"CACHE_LIMIT" envDefault:"2147483648"` // 0 disables eviction

	SettingsPath string `env:"SETTINGS_PATH" envDefault:"./config/settings.json"`
	PlaylistPath string `env:"PLAYLIST_PATH" envDefault:"./config/playlist.txt"`
	ChimePath    string `env:"CHIME_PATH" envDefault:"./assets/chime.mp3"`

	DefaultVolume          int    `env:"DEFAULT_VOLUME" envDefault:"5"` // percent
	Downloader             string `env:"DOWNLOADER" envDefault:"ytdlp"`
	YouTubeCookiesPath     string `env:"YOUTUBE_COOKIES_PATH"`
	YouTubePOToken         string `env:"YOUTUBE_PO_TOKEN"`
	SpotifyClientID        string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret    string `env:"SPOTIFY_CLIENT_SECRET"`
	PlaylistLimit          int    `env:"PLAYLIST_LIMIT" envDefault:"200"`
	MaxConsecutiveFailures int    `env:"MAX_CONSECUTIVE_FAILURES" envDefault:"5"`

	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"1h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`

	CommandRate  float64 `env:"COMMAND_RATE" envDefault:"1"` // commands per second per user
	CommandBurst int     `env:"COMMAND_BURST" envDefault:"5"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Filled from settings.json and the playlist file.
	ApplicationID string
	GuildIDs      []string
	Playlist      []string

	// SettingsMissing is set when SETTINGS_PATH did not exist. LoadConfig runs
	// before logging is configured, so main reports it.
	SettingsMissing bool
}

// Settings mirrors settings.json.
type Settings struct {
	Bot struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	} `json:"bot"`
	Server struct {
		List []string `json:"list"`
	} `json:"server"`
}

func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

func (c *Config) GuildAllowed(guildID string) bool {
	if len(c.GuildIDs) == 0 {
		return true
	}
	for _, id := range c.GuildIDs {
		if id == guildID {
			return true
		}
	}
	return false
}
