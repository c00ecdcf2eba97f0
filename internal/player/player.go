package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Materializer turns track ids into local audio files.
type Materializer interface {
	Materialize(ctx context.Context, id string) (string, error)
	Prefetch(id string)
}

// Sink plays one resource at a time on a guild's voice connection. Play
// returns when the resource ends, fails or ctx is cancelled.
type Sink interface {
	Play(ctx context.Context, res *Resource) error
	Close() error
}

// Connector opens a Sink on a voice channel.
type Connector interface {
	Join(ctx context.Context, guildID, channelID string) (Sink, error)
}

type Options struct {
	MaxFailures int
}

// Player sequences a guild's Session through a Sink. A single loop goroutine
// owns track sequencing while connected.
type Player struct {
	guildID string
	sess    *Session
	cache   Materializer
	opts    Options

	connMu sync.Mutex // serializes Connect and Disconnect

	mu         sync.Mutex
	sink       Sink
	channelID  string
	state      State
	currentID  string
	current    *Resource
	cancelCur  context.CancelFunc
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	chimePath  string
	lastActive time.Time

	wake chan struct{}
}

func NewPlayer(guildID string, sess *Session, cache Materializer, opts Options) *Player {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 5
	}
	return &Player{
		guildID:    guildID,
		sess:       sess,
		cache:      cache,
		opts:       opts,
		state:      StateDisconnected,
		lastActive: time.Now(),
		wake:       make(chan struct{}, 1),
	}
}

func (p *Player) GuildID() string    { return p.guildID }
func (p *Player) Session() *Session { return p.sess }

// Connect joins channelID and starts the playback loop. Joining the channel
// the player is already on is a no-op.
func (p *Player) Connect(ctx context.Context, conn Connector, channelID string) error {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	p.Touch()

	p.mu.Lock()
	same := p.sink != nil && p.channelID == channelID
	p.mu.Unlock()
	if same {
		return nil
	}
	p.disconnectLocked()

	sink, err := conn.Join(ctx, p.guildID, channelID)
	if err != nil {
		return fmt.Errorf("join voice channel %s: %w", channelID, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.sink = sink
	p.channelID = channelID
	p.state = StateIdle
	p.loopCancel = cancel
	p.loopDone = done
	p.mu.Unlock()

	slog.Info("voice connected", "guildID", p.guildID, "channelID", channelID)
	go p.run(loopCtx, sink, done)
	return nil
}

func (p *Player) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sink != nil
}

// Disconnect stops playback and leaves the voice channel. The Session is kept.
func (p *Player) Disconnect() error {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	p.Touch()
	if !p.Connected() {
		return ErrNotConnected
	}
	p.disconnectLocked()
	return nil
}

// DisconnectFrom disconnects only if the player is still on channelID and
// reports whether it did.
func (p *Player) DisconnectFrom(channelID string) bool {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	p.mu.Lock()
	on := p.sink != nil && p.channelID == channelID
	p.mu.Unlock()
	if !on {
		return false
	}
	p.disconnectLocked()
	return true
}

func (p *Player) disconnectLocked() {
	p.mu.Lock()
	sink := p.sink
	cancel := p.loopCancel
	done := p.loopDone
	p.sink = nil
	p.channelID = ""
	p.loopCancel = nil
	p.loopDone = nil
	p.chimePath = ""
	p.state = StateDisconnected
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		slog.Warn("playback loop did not stop in time", "guildID", p.guildID)
	}
	if err := sink.Close(); err != nil {
		slog.Warn("voice disconnect failed", "guildID", p.guildID, "err", err)
	}
	p.sess.setPlaying(false)
	slog.Info("voice disconnected", "guildID", p.guildID)
}

// PlayNow puts id at the head of the queue and interrupts whatever is playing.
func (p *Player) PlayNow(id string) error {
	p.Touch()
	if !p.Connected() {
		return ErrNotConnected
	}
	p.sess.PushFront(id)
	p.cache.Prefetch(id)
	p.interrupt()
	return nil
}

// LoadPlaylist replaces the guild playlist and restarts the queue from it,
// shuffled. Current playback continues.
func (p *Player) LoadPlaylist(ids []string) {
	p.Touch()
	p.sess.ReplacePlaylist(ids, true)
	p.signal()
}

func (p *Player) Shuffle() error {
	p.Touch()
	if !p.Connected() {
		return ErrNotConnected
	}
	p.sess.Shuffle()
	p.signal()
	return nil
}

// Skip stops the current track; the loop advances as if it had finished.
func (p *Player) Skip() error {
	p.Touch()
	if !p.Connected() {
		return ErrNotConnected
	}
	p.interrupt()
	return nil
}

// TogglePause pauses or resumes the current track and reports whether the
// player is now paused.
func (p *Player) TogglePause() (bool, error) {
	p.Touch()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sink == nil {
		return false, ErrNotConnected
	}
	if p.current == nil {
		return false, ErrNothingPlaying
	}
	paused := p.current.TogglePause()
	if paused {
		p.state = StatePaused
	} else {
		p.state = StatePlaying
	}
	p.sess.setPlaying(!paused)
	return paused, nil
}

// SetVolume stores the clamped volume and applies it to the current track.
func (p *Player) SetVolume(v float64) float64 {
	p.Touch()
	v = p.sess.SetVolume(v)
	p.mu.Lock()
	if p.current != nil {
		p.current.SetGain(v)
	}
	p.mu.Unlock()
	return v
}

// Chime interrupts the current track to play the asset at path, then puts the
// interrupted track back at the head of the queue.
func (p *Player) Chime(path string) bool {
	p.mu.Lock()
	if p.sink == nil {
		p.mu.Unlock()
		return false
	}
	p.chimePath = path
	id := p.currentID
	cancel := p.cancelCur
	p.mu.Unlock()

	if id != "" {
		p.sess.PushFront(id)
	}
	if cancel != nil {
		cancel()
	} else {
		p.signal()
	}
	return true
}

func (p *Player) Status() Status {
	p.mu.Lock()
	st := Status{GuildID: p.guildID, ChannelID: p.channelID, State: p.state}
	st.Current = p.currentID
	p.mu.Unlock()
	st.Volume = p.sess.Volume()
	st.Upcoming = p.sess.Upcoming(10)
	st.Queued = p.sess.Len()
	st.Playlist = p.sess.PlaylistLen()
	return st
}

func (p *Player) Touch() {
	p.mu.Lock()
	p.lastActive = time.Now()
	p.mu.Unlock()
}

func (p *Player) LastActive() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastActive
}

// interrupt cancels the running resource, or wakes the loop when nothing is
// running. A cancelled resource returns the loop to the queue by itself.
func (p *Player) interrupt() {
	p.mu.Lock()
	cancel := p.cancelCur
	p.mu.Unlock()
	if cancel != nil {
		cancel()
		return
	}
	p.signal()
}

func (p *Player) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Player) drainWake() {
	select {
	case <-p.wake:
	default:
	}
}

func (p *Player) setState(s State) {
	p.mu.Lock()
	if p.state != StateDisconnected {
		p.state = s
	}
	p.mu.Unlock()
}

func (p *Player) park(ctx context.Context) bool {
	p.setState(StateIdle)
	select {
	case <-ctx.Done():
		return false
	case <-p.wake:
		return true
	}
}

func (p *Player) takeChime() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	path := p.chimePath
	p.chimePath = ""
	return path
}

func (p *Player) run(ctx context.Context, sink Sink, done chan struct{}) {
	defer close(done)

	// drop wake-ups from before this connection
	p.drainWake()

	failures := 0
	for ctx.Err() == nil {
		if path := p.takeChime(); path != "" {
			chime := func(context.Context) (string, error) { return path, nil }
			if err := p.play(ctx, sink, "", chime); err != nil {
				slog.Warn("chime failed", "guildID", p.guildID, "err", err)
			}
			p.drainWake()
			continue
		}

		p.setState(StateResolving)
		id, ok := p.sess.Next()
		if !ok {
			if !p.park(ctx) {
				return
			}
			continue
		}

		err := p.playTrack(ctx, sink, id)
		// the loop re-reads the queue next, which covers any wake-up sent
		// while the track was running
		p.drainWake()
		if err == nil {
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			return
		}
		failures++
		slog.Warn("track failed, skipping", "guildID", p.guildID, "id", id, "consecutive", failures, "err", err)
		if failures >= p.opts.MaxFailures {
			slog.Warn("too many consecutive failures, waiting for a command", "guildID", p.guildID)
			if !p.park(ctx) {
				return
			}
			failures = 0
		}
	}
}

func (p *Player) playTrack(ctx context.Context, sink Sink, id string) error {
	return p.play(ctx, sink, id, func(ctx context.Context) (string, error) {
		path, err := p.cache.Materialize(ctx, id)
		if err != nil {
			return "", err
		}
		if next, ok := p.sess.Peek(); ok {
			p.cache.Prefetch(next)
		}
		slog.Info("now playing", "guildID", p.guildID, "id", id)
		return path, nil
	})
}

// play resolves and plays one resource. Cancelling the resource context, as
// skip does, is not an error.
func (p *Player) play(ctx context.Context, sink Sink, id string, resolve func(context.Context) (string, error)) error {
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	p.currentID = id
	p.cancelCur = cancel
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.currentID = ""
		p.current = nil
		p.cancelCur = nil
		p.mu.Unlock()
		p.sess.setPlaying(false)
	}()

	path, err := resolve(rctx)
	if err == nil {
		res := NewResource(id, path, p.sess.Volume())
		p.mu.Lock()
		p.current = res
		if p.state != StateDisconnected {
			p.state = StatePlaying
		}
		p.mu.Unlock()
		p.sess.setPlaying(true)
		err = sink.Play(rctx, res)
	}

	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return nil
	}
	return err
}
