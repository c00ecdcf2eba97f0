package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sonroyaalmerol/jukebox/internal/player"
	"github.com/sonroyaalmerol/jukebox/internal/repository"
	"github.com/sonroyaalmerol/jukebox/internal/stream"
)

const testVideo = "dQw4w9WgXcQ"

// stallCache never finishes resolving, so a connected player stays in the
// resolving state and leaves the queue to the test.
type stallCache struct{}

func (stallCache) Materialize(ctx context.Context, id string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (stallCache) Prefetch(id string) {}

type nopSink struct{}

func (nopSink) Play(ctx context.Context, res *player.Resource) error {
	<-ctx.Done()
	return ctx.Err()
}

func (nopSink) Close() error { return nil }

type fakeConnector struct {
	err error
}

func (c *fakeConnector) Join(ctx context.Context, guildID, channelID string) (player.Sink, error) {
	if c.err != nil {
		return nil, c.err
	}
	return nopSink{}, nil
}

type fakeChannels map[string]string

func (f fakeChannels) VoiceChannel(guildID, channelID string) (string, bool) {
	name, ok := f[channelID]
	return name, ok
}

type fakeResolver struct {
	result   *stream.Result
	ids      []string
	err      error
	searched []string
	sources  []string
}

func (f *fakeResolver) Search(ctx context.Context, query string, src stream.Source) (*stream.Result, error) {
	f.searched = append(f.searched, string(src)+":"+query)
	if f.result == nil {
		return nil, stream.ErrNoResults
	}
	return f.result, nil
}

func (f *fakeResolver) Playlist(ctx context.Context, source string) ([]string, error) {
	f.sources = append(f.sources, source)
	return f.ids, f.err
}

type memSettings struct {
	mu   sync.Mutex
	sets map[string]repository.Settings
}

func (m *memSettings) UpsertSettings(ctx context.Context, guild string, defaultVolume int) (*repository.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[guild]
	if !ok {
		s = repository.Settings{GuildID: guild, Volume: defaultVolume, ChimeEnabled: true}
		m.sets[guild] = s
	}
	return &s, nil
}

func (m *memSettings) UpdateSettings(ctx context.Context, s *repository.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[s.GuildID] = *s
	return nil
}

type savedPlaylist struct {
	guild, author, source string
	ids                   []string
}

type memPlaylists struct {
	saved []savedPlaylist
}

func (m *memPlaylists) Save(ctx context.Context, guild, author, source string, ids []string) error {
	m.saved = append(m.saved, savedPlaylist{guild, author, source, ids})
	return nil
}

type testEnv struct {
	router    *Router
	players   *player.Manager
	conn      *fakeConnector
	resolver  *fakeResolver
	settings  *memSettings
	playlists *memPlaylists
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		conn:      &fakeConnector{},
		resolver:  &fakeResolver{},
		settings:  &memSettings{sets: map[string]repository.Settings{}},
		playlists: &memPlaylists{},
	}
	env.players = player.NewManager(func(guildID string) *player.Player {
		sess := player.NewSession([]string{"aaaaaaaaaaa", "bbbbbbbbbbb"}, 0.05)
		return player.NewPlayer(guildID, sess, stallCache{}, player.Options{MaxFailures: 3})
	}, 0)
	t.Cleanup(env.players.Shutdown)

	env.router = NewRouter(RouterDeps{
		Players:       env.players,
		Connector:     env.conn,
		Channels:      fakeChannels{"voice1": "General"},
		Resolver:      env.resolver,
		Settings:      env.settings,
		Playlists:     env.playlists,
		DefaultVolume: 5,
	})
	return env
}

func (e *testEnv) run(name string, opts map[string]any) Reply {
	if opts == nil {
		opts = map[string]any{}
	}
	return e.router.Dispatch(context.Background(), name, &CommandContext{
		GuildID: "g1",
		UserID:  "u1",
		Options: opts,
	})
}

func (e *testEnv) connect(t *testing.T) {
	t.Helper()
	if r := e.run("connect", map[string]any{"channel": "voice1"}); r.Content != fmt.Sprintf(msgConnected, "General") {
		t.Fatalf("connect reply = %q", r.Content)
	}
}

func TestPingAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	if r := env.run("ping", nil); r.Content != msgPong || r.Ephemeral {
		t.Fatalf("ping = %+v", r)
	}
	if r := env.run("dance", nil); r.Content != msgUnknown {
		t.Fatalf("unknown = %+v", r)
	}
}

func TestCommandsWithoutConnection(t *testing.T) {
	env := newTestEnv(t)
	for _, tc := range []struct {
		name string
		opts map[string]any
		want string
	}{
		{"disconnect", nil, msgNoConnection},
		{"skip", nil, msgNoConnection},
		{"shuffle", nil, msgNoConnection},
		{"pause", nil, msgNoConnection},
		{"play", map[string]any{"url": testVideo}, msgNoConnection},
		{"search", map[string]any{"query": "lofi"}, msgNoConnection},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if r := env.run(tc.name, tc.opts); r.Content != tc.want {
				t.Fatalf("reply = %q, want %q", r.Content, tc.want)
			}
		})
	}
	if len(env.resolver.searched) != 0 {
		t.Fatalf("search ran without a connection: %v", env.resolver.searched)
	}
}

func TestPlayRejectsMalformedURL(t *testing.T) {
	env := newTestEnv(t)
	sess := env.players.Get("g1").Session()
	before := sess.Len()

	for _, raw := range []string{"", "not a url", "https://example.com/watch?v=dQw4w9WgXcQ", "https://youtu.be/short"} {
		if r := env.run("play", map[string]any{"url": raw}); r.Content != msgInvalidVideo {
			t.Fatalf("play %q = %q", raw, r.Content)
		}
	}
	if sess.Len() != before {
		t.Fatalf("queue changed: %d -> %d", before, sess.Len())
	}
}

func TestConnect(t *testing.T) {
	env := newTestEnv(t)
	if r := env.run("connect", map[string]any{"channel": "missing"}); r.Content != msgNoSuchChannel {
		t.Fatalf("missing channel = %q", r.Content)
	}
	if r := env.run("connect", nil); r.Content != msgNoSuchChannel {
		t.Fatalf("no channel = %q", r.Content)
	}

	env.conn.err = errors.New("voice gateway down")
	if r := env.run("connect", map[string]any{"channel": "voice1"}); r.Content != msgJoinFailed {
		t.Fatalf("failed join = %q", r.Content)
	}
	env.conn.err = nil

	env.connect(t)
	if !env.players.Get("g1").Connected() {
		t.Fatal("player not connected")
	}
	if r := env.run("disconnect", nil); r.Content != msgDisconnected {
		t.Fatalf("disconnect = %q", r.Content)
	}
	if env.players.Get("g1").Connected() {
		t.Fatal("player still connected")
	}
}

func TestPlayAndTransport(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t)

	if r := env.run("play", map[string]any{"url": "https://www.youtube.com/watch?v=" + testVideo}); r.Content != fmt.Sprintf(msgPlayingNext, testVideo) {
		t.Fatalf("play = %q", r.Content)
	}
	if r := env.run("pause", nil); r.Content != msgNothingPlaying {
		t.Fatalf("pause while resolving = %q", r.Content)
	}
	if r := env.run("skip", nil); r.Content != msgSkipped {
		t.Fatalf("skip = %q", r.Content)
	}
	if r := env.run("shuffle", nil); r.Content != msgShuffled {
		t.Fatalf("shuffle = %q", r.Content)
	}
}

func TestPlaylistCommand(t *testing.T) {
	env := newTestEnv(t)

	if r := env.run("playlist", map[string]any{"url": "https://www.youtube.com/watch?v=" + testVideo}); r.Content != msgInvalidPlaylist {
		t.Fatalf("video url = %q", r.Content)
	}
	if r := env.run("playlist", map[string]any{"url": "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"}); r.Content != msgInvalidPlaylist {
		t.Fatalf("spotify while disabled = %q", r.Content)
	}
	if len(env.resolver.sources) != 0 {
		t.Fatalf("resolver called for invalid input: %v", env.resolver.sources)
	}

	pl := "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI"
	if r := env.run("playlist", map[string]any{"url": pl}); r.Content != msgPlaylistEmpty {
		t.Fatalf("empty playlist = %q", r.Content)
	}

	env.resolver.ids = []string{"ccccccccccc", "ddddddddddd", "eeeeeeeeeee"}
	if r := env.run("playlist", map[string]any{"url": "https://www.youtube.com/playlist?list=" + pl}); r.Content != fmt.Sprintf(msgPlaylistLoaded, 3) {
		t.Fatalf("playlist = %q", r.Content)
	}
	if got := env.players.Get("g1").Session().PlaylistLen(); got != 3 {
		t.Fatalf("playlist len = %d", got)
	}
	if len(env.playlists.saved) != 1 || env.playlists.saved[0].author != "u1" || len(env.playlists.saved[0].ids) != 3 {
		t.Fatalf("saved = %+v", env.playlists.saved)
	}
	if want := stream.PlaylistURL(pl); env.resolver.sources[len(env.resolver.sources)-1] != want {
		t.Fatalf("source = %q, want %q", env.resolver.sources[len(env.resolver.sources)-1], want)
	}
}

func TestPlaylistSpotifyEnabled(t *testing.T) {
	env := newTestEnv(t)
	env.router.Spotify = true
	env.resolver.ids = []string{"ccccccccccc"}

	link := "https://open.spotify.com/intl-de/album/4aawyAB9vmqN3uQ7FjRGTy"
	if r := env.run("playlist", map[string]any{"url": link}); r.Content != fmt.Sprintf(msgPlaylistLoaded, 1) {
		t.Fatalf("spotify playlist = %q", r.Content)
	}
	if env.resolver.sources[0] != link {
		t.Fatalf("source = %q", env.resolver.sources[0])
	}
}

func TestSearchCommand(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t)

	if r := env.run("search", map[string]any{"query": "   "}); r.Content != fmt.Sprintf(msgMissingArgument, "query") {
		t.Fatalf("blank query = %q", r.Content)
	}
	if r := env.run("search", map[string]any{"query": "nothing here"}); r.Content != fmt.Sprintf(msgNoResults, "nothing here") {
		t.Fatalf("no results = %q", r.Content)
	}

	env.resolver.result = &stream.Result{ID: testVideo, Title: "Never `Gonna` Give"}
	r := env.run("search", map[string]any{"query": "rick", "source": "music"})
	if r.Content != fmt.Sprintf(msgSearchPlaying, "Never \\`Gonna\\` Give") {
		t.Fatalf("search = %q", r.Content)
	}
	if last := env.resolver.searched[len(env.resolver.searched)-1]; last != "music:rick" {
		t.Fatalf("searched = %q", last)
	}

	env.run("search", map[string]any{"query": "rick", "source": "bogus"})
	if last := env.resolver.searched[len(env.resolver.searched)-1]; last != "youtube:rick" {
		t.Fatalf("searched = %q", last)
	}
}

func TestVolumeAndChimePersist(t *testing.T) {
	env := newTestEnv(t)

	for _, v := range []any{float64(-1), float64(101), "loud", nil} {
		if r := env.run("volume", map[string]any{"level": v}); r.Content != msgVolumeRange {
			t.Fatalf("volume %v = %q", v, r.Content)
		}
	}
	if r := env.run("volume", map[string]any{"level": float64(40)}); r.Content != fmt.Sprintf(msgVolumeSet, 40) {
		t.Fatalf("volume = %q", r.Content)
	}
	if got := env.players.Get("g1").Session().Volume(); got != 0.4 {
		t.Fatalf("session volume = %v", got)
	}
	if env.settings.sets["g1"].Volume != 40 {
		t.Fatalf("stored volume = %d", env.settings.sets["g1"].Volume)
	}

	if r := env.run("chime", map[string]any{"enabled": false}); r.Content != msgChimeOff {
		t.Fatalf("chime off = %q", r.Content)
	}
	if s := env.settings.sets["g1"]; s.ChimeEnabled || s.Volume != 40 {
		t.Fatalf("settings = %+v", s)
	}
	if r := env.run("chime", map[string]any{"enabled": true}); r.Content != msgChimeOn {
		t.Fatalf("chime on = %q", r.Content)
	}
}

func TestStatusViews(t *testing.T) {
	env := newTestEnv(t)
	if r := env.run("queue", nil); r.Embed == nil {
		t.Fatal("queue without embed")
	}
	if r := env.run("nowplaying", nil); r.Embed == nil || r.Embed.Title != "Nothing Playing" {
		t.Fatalf("nowplaying = %+v", r.Embed)
	}
}

func TestDispatchRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.router.Limiter = NewUserLimiter(0.001, 2)

	for i := 0; i < 2; i++ {
		if r := env.run("ping", nil); r.Content != msgPong {
			t.Fatalf("call %d = %q", i, r.Content)
		}
	}
	if r := env.run("ping", nil); r.Content != msgSlowDown || !r.Ephemeral {
		t.Fatalf("limited = %+v", r)
	}
}
