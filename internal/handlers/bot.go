package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/jukebox/internal/autocomplete"
	"github.com/sonroyaalmerol/jukebox/internal/cache"
	"github.com/sonroyaalmerol/jukebox/internal/config"
	"github.com/sonroyaalmerol/jukebox/internal/player"
	"github.com/sonroyaalmerol/jukebox/internal/repository"
	"github.com/sonroyaalmerol/jukebox/internal/spotify"
	"github.com/sonroyaalmerol/jukebox/internal/stream"
	"golang.org/x/sync/errgroup"
)

// Discord drops autocomplete answers after three seconds.
const autocompleteTimeout = 2500 * time.Millisecond

type Bot struct {
	cfg       *config.Config
	repo      *repository.Repo
	cache     *cache.FileCache
	playlists *repository.PlaylistService
	sp        *spotify.Client
	pm        *player.Manager
	router    *Router
}

func NewBot(cfg *config.Config, repo *repository.Repo, fc *cache.FileCache) *Bot {
	b := &Bot{
		cfg:       cfg,
		repo:      repo,
		cache:     fc,
		playlists: repository.NewPlaylistService(repo),
	}
	if cfg.SpotifyEnabled() {
		b.sp = spotify.NewClientCredentials(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	}
	b.pm = player.NewManager(b.newPlayer, cfg.SessionIdleTTL)
	return b
}

func (b *Bot) ytdlpOptions() stream.YtdlpOptions {
	return stream.YtdlpOptions{CookiesPath: b.cfg.YouTubeCookiesPath, POToken: b.cfg.YouTubePOToken}
}

// newPlayer restores a guild's saved volume and playlist, falling back to the
// configured defaults.
func (b *Bot) newPlayer(guildID string) *player.Player {
	ctx := context.Background()
	volume := b.cfg.DefaultVolume
	if set, err := b.repo.UpsertSettings(ctx, guildID, b.cfg.DefaultVolume); err != nil {
		slog.Warn("loading guild settings failed", "guildID", guildID, "err", err)
	} else {
		volume = set.Volume
	}

	ids, err := b.playlists.Restore(ctx, guildID)
	if err != nil {
		slog.Warn("restoring playlist failed", "guildID", guildID, "err", err)
	}
	if len(ids) == 0 {
		ids = b.cfg.Playlist
	}
	slog.Debug("new player", "guildID", guildID, "volume", volume, "playlist", len(ids))

	sess := player.NewSession(ids, float64(volume)/100)
	return player.NewPlayer(guildID, sess, b.cache, player.Options{MaxFailures: b.cfg.MaxConsecutiveFailures})
}

func (b *Bot) chimeEnabled(ctx context.Context, guildID string) bool {
	set, err := b.repo.GetSettings(ctx, guildID)
	if err != nil || set == nil {
		return true
	}
	return set.ChimeEnabled
}

func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	b.router = NewRouter(RouterDeps{
		Players:   b.pm,
		Connector: player.NewVoiceConnector(dg),
		Channels:  &discordChannels{s: dg},
		Resolver: &TrackResolver{
			Searcher: stream.NewSearcher(b.ytdlpOptions()),
			Ytdlp:    b.ytdlpOptions(),
			Spotify:  b.sp,
			Limit:    b.cfg.PlaylistLimit,
		},
		Settings:      b.repo,
		Playlists:     b.playlists,
		Limiter:       NewUserLimiter(b.cfg.CommandRate, b.cfg.CommandBurst),
		DefaultVolume: b.cfg.DefaultVolume,
		Spotify:       b.sp != nil,
	})

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("connected", "user", s.State.User.Username)
		b.registerCommands(s)
	})
	dg.AddHandler(b.handleInteraction)

	// follow the bot being kicked or moved out of voice
	dg.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		if s.State.User == nil || vs.UserID != s.State.User.ID || vs.ChannelID != "" || vs.BeforeUpdate == nil {
			return
		}
		// a late event for a channel the player already left must not drop
		// the new connection
		if p := b.pm.Peek(vs.GuildID); p != nil && p.DisconnectFrom(vs.BeforeUpdate.ChannelID) {
			slog.Info("removed from voice channel", "guildID", vs.GuildID, "channelID", vs.BeforeUpdate.ChannelID)
		}
	})

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ch := &player.Chimer{Path: b.cfg.ChimePath, Manager: b.pm, Enabled: b.chimeEnabled}
		return ch.Run(gctx)
	})
	g.Go(func() error {
		return b.pm.RunSweeper(gctx, b.cfg.SessionSweepInterval)
	})

	err = g.Wait()
	b.pm.Shutdown()
	return err
}

func (b *Bot) registerCommands(s *discordgo.Session) {
	appID := b.cfg.ApplicationID
	if appID == "" {
		appID = s.State.User.ID
	}
	cmds := Commands()

	if len(b.cfg.GuildIDs) == 0 {
		if _, err := s.ApplicationCommandBulkOverwrite(appID, "", cmds); err != nil {
			slog.Error("register global commands", "err", err)
			return
		}
		slog.Info("registered global application commands")
		return
	}

	var g errgroup.Group
	for _, guildID := range b.cfg.GuildIDs {
		g.Go(func() error {
			if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, cmds); err != nil {
				slog.Error("register guild commands", "guildID", guildID, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	slog.Info("registered commands", "guilds", len(b.cfg.GuildIDs))
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" || !b.cfg.GuildAllowed(i.GuildID) {
		slog.Debug("interaction: ignored guild", "guildID", i.GuildID)
		return
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(s, i)
	default:
		slog.Debug("interaction: ignored type", "type", i.Type, "guildID", i.GuildID)
	}
}

func (b *Bot) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	var query string
	for _, opt := range data.Options {
		if opt.Focused && opt.Type == discordgo.ApplicationCommandOptionString {
			query = opt.StringValue()
		}
	}
	choices := []*discordgo.ApplicationCommandOptionChoice{}
	if data.Name == "search" && strings.TrimSpace(query) != "" {
		ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
		choices = autocomplete.Suggestions(ctx, query, b.sp, 10)
		cancel()
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	}); err != nil {
		slog.Debug("autocomplete reply failed", "guildID", i.GuildID, "err", err)
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	c := &CommandContext{
		GuildID: i.GuildID,
		UserID:  userIDOf(i),
		Options: optionMap(data.Options),
	}

	answer(&interactionResponder{s: s, i: i}, deferAfter, func() Reply {
		return b.router.Dispatch(context.Background(), data.Name, c)
	})
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]any {
	m := make(map[string]any, len(opts))
	for _, o := range opts {
		m[o.Name] = o.Value
	}
	return m
}

func userIDOf(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// discordChannels resolves voice channels from the session state, falling
// back to the REST API.
type discordChannels struct {
	s *discordgo.Session
}

func (d *discordChannels) VoiceChannel(guildID, channelID string) (string, bool) {
	if channelID == "" {
		return "", false
	}
	ch, err := d.s.State.Channel(channelID)
	if err != nil || ch == nil {
		ch, err = d.s.Channel(channelID)
	}
	if err != nil || ch == nil || ch.GuildID != guildID {
		return "", false
	}
	if ch.Type != discordgo.ChannelTypeGuildVoice && ch.Type != discordgo.ChannelTypeGuildStageVoice {
		return "", false
	}
	return ch.Name, true
}
