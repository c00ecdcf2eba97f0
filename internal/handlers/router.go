package handlers

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/jukebox/internal/player"
	"github.com/sonroyaalmerol/jukebox/internal/repository"
	"github.com/sonroyaalmerol/jukebox/internal/stream"
)

// Reply is the single response a command produces.
type Reply struct {
	Content   string
	Embed     *discordgo.MessageEmbed
	Ephemeral bool
}

// CommandContext carries what a command needs from the interaction.
type CommandContext struct {
	GuildID string
	UserID  string
	// Options maps option names to their raw values: strings for string and
	// channel options, float64 for integers, bool for booleans.
	Options map[string]any
	Player  *player.Player
}

func (c *CommandContext) String(name string) string {
	v, _ := c.Options[name].(string)
	return v
}

func (c *CommandContext) Int(name string) (int, bool) {
	switch v := c.Options[name].(type) {
	case float64:
		return int(math.Round(v)), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func (c *CommandContext) Bool(name string) (bool, bool) {
	v, ok := c.Options[name].(bool)
	return v, ok
}

type CommandFunc func(ctx context.Context, c *CommandContext) Reply

// ChannelLookup resolves voice channels of a guild.
type ChannelLookup interface {
	VoiceChannel(guildID, channelID string) (name string, ok bool)
}

// Resolver turns user input into playable track ids.
type Resolver interface {
	Search(ctx context.Context, query string, src stream.Source) (*stream.Result, error)
	Playlist(ctx context.Context, source string) ([]string, error)
}

type SettingsStore interface {
	UpsertSettings(ctx context.Context, guild string, defaultVolume int) (*repository.Settings, error)
	UpdateSettings(ctx context.Context, s *repository.Settings) error
}

type PlaylistStore interface {
	Save(ctx context.Context, guild, author, source string, ids []string) error
}

type RouterDeps struct {
	Players       *player.Manager
	Connector     player.Connector
	Channels      ChannelLookup
	Resolver      Resolver
	Settings      SettingsStore
	Playlists     PlaylistStore
	Limiter       *UserLimiter
	DefaultVolume int
	Spotify       bool
}

// Router dispatches slash commands by name.
type Router struct {
	RouterDeps
	commands map[string]CommandFunc
}

func NewRouter(deps RouterDeps) *Router {
	r := &Router{RouterDeps: deps}
	r.commands = map[string]CommandFunc{
		"ping":       r.cmdPing,
		"connect":    r.cmdConnect,
		"disconnect": r.cmdDisconnect,
		"play":       r.cmdPlay,
		"playlist":   r.cmdPlaylist,
		"search":     r.cmdSearch,
		"pause":      r.cmdPause,
		"skip":       r.cmdSkip,
		"shuffle":    r.cmdShuffle,
		"volume":     r.cmdVolume,
		"queue":      r.cmdQueue,
		"nowplaying": r.cmdNowPlaying,
		"chime":      r.cmdChime,
	}
	return r
}

// Dispatch runs the named command and returns its reply.
func (r *Router) Dispatch(ctx context.Context, name string, c *CommandContext) Reply {
	fn, ok := r.commands[name]
	if !ok {
		slog.Debug("unknown command", "name", name, "guildID", c.GuildID, "userID", c.UserID)
		return Reply{Content: msgUnknown, Ephemeral: true}
	}
	if r.Limiter != nil && !r.Limiter.Allow(c.UserID) {
		slog.Debug("rate limited", "name", name, "guildID", c.GuildID, "userID", c.UserID)
		return Reply{Content: msgSlowDown, Ephemeral: true}
	}
	if c.Player == nil {
		c.Player = r.Players.Get(c.GuildID)
	}
	slog.Info("cmd "+name, "guildID", c.GuildID, "userID", c.UserID)
	return fn(ctx, c)
}

func cleanInline(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	return strings.TrimSpace(s)
}
