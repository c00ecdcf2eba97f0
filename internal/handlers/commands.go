package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/jukebox/internal/player"
	"github.com/sonroyaalmerol/jukebox/internal/spotify"
	"github.com/sonroyaalmerol/jukebox/internal/stream"
	"github.com/sonroyaalmerol/jukebox/internal/ui"
	"github.com/sonroyaalmerol/jukebox/internal/utils"
)

var voiceChannelTypes = []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice}

// Commands is the slash command set registered with Discord.
func Commands() []*discordgo.ApplicationCommand {
	minVol := 0.0
	return []*discordgo.ApplicationCommand{
		{Name: "ping", Description: "Check that the bot is alive"},
		{
			Name:        "connect",
			Description: "Join a voice channel",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "channel", Description: "voice channel to join", Type: discordgo.ApplicationCommandOptionChannel, ChannelTypes: voiceChannelTypes, Required: true},
			},
		},
		{Name: "disconnect", Description: "Leave the voice channel"},
		{
			Name:        "play",
			Description: "Play a YouTube video next",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "url", Description: "YouTube URL or video id", Type: discordgo.ApplicationCommandOptionString, Required: true},
			},
		},
		{
			Name:        "playlist",
			Description: "Replace the playlist",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "url", Description: "YouTube playlist URL or id, or a Spotify link", Type: discordgo.ApplicationCommandOptionString, Required: true},
			},
		},
		{
			Name:        "search",
			Description: "Search YouTube and play the first result next",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "query", Description: "search text", Type: discordgo.ApplicationCommandOptionString, Required: true, Autocomplete: true},
				{Name: "source", Description: "where to search [default: youtube]", Type: discordgo.ApplicationCommandOptionString, Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "YouTube", Value: string(stream.SourceYouTube)},
					{Name: "YouTube Music", Value: string(stream.SourceMusic)},
				}},
			},
		},
		{Name: "pause", Description: "Pause or resume playback"},
		{Name: "skip", Description: "Skip the current track"},
		{Name: "shuffle", Description: "Reshuffle the queue from the playlist"},
		{
			Name:        "volume",
			Description: "Set the playback volume",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "level", Description: "0-100", Type: discordgo.ApplicationCommandOptionInteger, MinValue: &minVol, MaxValue: 100, Required: true},
			},
		},
		{Name: "queue", Description: "Show the upcoming tracks"},
		{Name: "nowplaying", Description: "Show the current track"},
		{
			Name:        "chime",
			Description: "Toggle the hourly chime",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "enabled", Description: "true/false", Type: discordgo.ApplicationCommandOptionBoolean, Required: true},
			},
		},
	}
}

func (r *Router) cmdPing(ctx context.Context, c *CommandContext) Reply {
	return Reply{Content: msgPong}
}

func (r *Router) cmdConnect(ctx context.Context, c *CommandContext) Reply {
	chID := c.String("channel")
	name, ok := r.Channels.VoiceChannel(c.GuildID, chID)
	if chID == "" || !ok {
		return Reply{Content: msgNoSuchChannel, Ephemeral: true}
	}
	if err := c.Player.Connect(ctx, r.Connector, chID); err != nil {
		slog.Warn("voice connect failed", "guildID", c.GuildID, "channelID", chID, "err", err)
		return Reply{Content: msgJoinFailed, Ephemeral: true}
	}
	return Reply{Content: fmt.Sprintf(msgConnected, cleanInline(name))}
}

func (r *Router) cmdDisconnect(ctx context.Context, c *CommandContext) Reply {
	if err := c.Player.Disconnect(); err != nil {
		return Reply{Content: msgNoConnection, Ephemeral: true}
	}
	return Reply{Content: msgDisconnected}
}

func (r *Router) cmdPlay(ctx context.Context, c *CommandContext) Reply {
	id, ok := ParseVideoID(c.String("url"))
	if !ok {
		return Reply{Content: msgInvalidVideo, Ephemeral: true}
	}
	if err := c.Player.PlayNow(id); err != nil {
		return Reply{Content: msgNoConnection, Ephemeral: true}
	}
	return Reply{Content: fmt.Sprintf(msgPlayingNext, id)}
}

func (r *Router) cmdPlaylist(ctx context.Context, c *CommandContext) Reply {
	raw := strings.TrimSpace(c.String("url"))
	var source string
	if id, ok := ParsePlaylistID(raw); ok {
		source = stream.PlaylistURL(id)
	} else if r.Spotify && spotify.IsSpotify(raw) {
		if _, _, err := spotify.ParseID(raw); err != nil {
			return Reply{Content: msgInvalidPlaylist, Ephemeral: true}
		}
		source = raw
	} else {
		return Reply{Content: msgInvalidPlaylist, Ephemeral: true}
	}

	ids, err := r.Resolver.Playlist(ctx, source)
	if err != nil || len(ids) == 0 {
		slog.Warn("playlist load failed", "guildID", c.GuildID, "source", source, "count", len(ids), "err", err)
		return Reply{Content: msgPlaylistEmpty, Ephemeral: true}
	}

	c.Player.LoadPlaylist(ids)
	if r.Playlists != nil {
		if err := r.Playlists.Save(ctx, c.GuildID, c.UserID, source, ids); err != nil {
			slog.Warn("saving playlist failed", "guildID", c.GuildID, "err", err)
		}
	}
	return Reply{Content: fmt.Sprintf(msgPlaylistLoaded, len(ids))}
}

func (r *Router) cmdSearch(ctx context.Context, c *CommandContext) Reply {
	query := strings.TrimSpace(c.String("query"))
	if query == "" {
		return Reply{Content: fmt.Sprintf(msgMissingArgument, "query"), Ephemeral: true}
	}
	if !c.Player.Connected() {
		return Reply{Content: msgNoConnection, Ephemeral: true}
	}
	src := stream.Source(c.String("source"))
	if src != stream.SourceMusic {
		src = stream.SourceYouTube
	}

	res, err := r.Resolver.Search(ctx, query, src)
	if err != nil || res == nil || res.ID == "" {
		slog.Debug("search failed", "guildID", c.GuildID, "query", query, "err", err)
		return Reply{Content: fmt.Sprintf(msgNoResults, cleanInline(query)), Ephemeral: true}
	}
	if err := c.Player.PlayNow(res.ID); err != nil {
		return Reply{Content: msgNoConnection, Ephemeral: true}
	}
	title := res.Title
	if title == "" {
		title = res.ID
	}
	return Reply{Content: fmt.Sprintf(msgSearchPlaying, utils.EscapeMd(strings.TrimSpace(title)))}
}

func (r *Router) cmdPause(ctx context.Context, c *CommandContext) Reply {
	paused, err := c.Player.TogglePause()
	switch {
	case errors.Is(err, player.ErrNotConnected):
		return Reply{Content: msgNoConnection, Ephemeral: true}
	case errors.Is(err, player.ErrNothingPlaying):
		return Reply{Content: msgNothingPlaying, Ephemeral: true}
	case err != nil:
		slog.Error("pause failed", "guildID", c.GuildID, "err", err)
		return Reply{Content: msgInternal, Ephemeral: true}
	}
	if paused {
		return Reply{Content: msgPaused}
	}
	return Reply{Content: msgResumed}
}

func (r *Router) cmdSkip(ctx context.Context, c *CommandContext) Reply {
	if err := c.Player.Skip(); err != nil {
		return Reply{Content: msgNoConnection, Ephemeral: true}
	}
	return Reply{Content: msgSkipped}
}

func (r *Router) cmdShuffle(ctx context.Context, c *CommandContext) Reply {
	if err := c.Player.Shuffle(); err != nil {
		return Reply{Content: msgNoConnection, Ephemeral: true}
	}
	return Reply{Content: msgShuffled}
}

func (r *Router) cmdVolume(ctx context.Context, c *CommandContext) Reply {
	level, ok := c.Int("level")
	if !ok || level < 0 || level > 100 {
		return Reply{Content: msgVolumeRange, Ephemeral: true}
	}
	c.Player.SetVolume(float64(level) / 100)

	if r.Settings != nil {
		set, err := r.Settings.UpsertSettings(ctx, c.GuildID, r.DefaultVolume)
		if err == nil {
			set.Volume = level
			err = r.Settings.UpdateSettings(ctx, set)
		}
		if err != nil {
			slog.Warn("saving volume failed", "guildID", c.GuildID, "err", err)
		}
	}
	return Reply{Content: fmt.Sprintf(msgVolumeSet, level)}
}

func (r *Router) cmdQueue(ctx context.Context, c *CommandContext) Reply {
	return Reply{Embed: ui.BuildQueueEmbed(c.Player.Status())}
}

func (r *Router) cmdNowPlaying(ctx context.Context, c *CommandContext) Reply {
	return Reply{Embed: ui.BuildPlayingEmbed(c.Player.Status())}
}

func (r *Router) cmdChime(ctx context.Context, c *CommandContext) Reply {
	enabled, ok := c.Bool("enabled")
	if !ok {
		return Reply{Content: fmt.Sprintf(msgMissingArgument, "enabled"), Ephemeral: true}
	}
	if r.Settings != nil {
		set, err := r.Settings.UpsertSettings(ctx, c.GuildID, r.DefaultVolume)
		if err == nil {
			set.ChimeEnabled = enabled
			err = r.Settings.UpdateSettings(ctx, set)
		}
		if err != nil {
			slog.Error("saving chime setting failed", "guildID", c.GuildID, "err", err)
			return Reply{Content: msgInternal, Ephemeral: true}
		}
	}
	if enabled {
		return Reply{Content: msgChimeOn}
	}
	return Reply{Content: msgChimeOff}
}
