package player

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Factory builds the Player for a guild the first time it is needed.
type Factory func(guildID string) *Player

type Manager struct {
	mu      sync.Mutex
	players map[string]*Player
	factory Factory
	ttl     time.Duration
}

func NewManager(factory Factory, idleTTL time.Duration) *Manager {
	return &Manager{players: make(map[string]*Player), factory: factory, ttl: idleTTL}
}

// Get returns the guild's player, creating it on first use. The player is
// touched under the registry lock so a concurrent Sweep cannot drop it before
// the caller acts on it.
func (m *Manager) Get(guildID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[guildID]; ok {
		p.Touch()
		return p
	}
	p := m.factory(guildID)
	m.players[guildID] = p
	return p
}

func (m *Manager) Peek(guildID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[guildID]
}

// Each calls fn for a snapshot of the live players.
func (m *Manager) Each(fn func(*Player)) {
	m.mu.Lock()
	ps := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		ps = append(ps, p)
	}
	m.mu.Unlock()
	for _, p := range ps {
		fn(p)
	}
}

// Sweep drops disconnected players that have been idle longer than the TTL
// and returns their guild ids.
func (m *Manager) Sweep(now time.Time) []string {
	if m.ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var evicted []string
	for id, p := range m.players {
		if p.Connected() || now.Sub(p.LastActive()) < m.ttl {
			continue
		}
		delete(m.players, id)
		evicted = append(evicted, id)
	}
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || m.ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			if ids := m.Sweep(now); len(ids) > 0 {
				slog.Info("evicted idle sessions", "count", len(ids), "guildIDs", ids)
			}
		}
	}
}

// Shutdown disconnects every player.
func (m *Manager) Shutdown() {
	m.Each(func(p *Player) {
		if p.Connected() {
			_ = p.Disconnect()
		}
	})
}
