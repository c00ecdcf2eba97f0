package player

import (
	"context"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

func TestManagerGetCreatesOnce(t *testing.T) {
	var built atomic.Int32
	m := NewManager(func(guildID string) *Player {
		built.Add(1)
		return NewPlayer(guildID, NewSession([]string{"a"}, 0.05), &fakeCache{}, Options{})
	}, time.Hour)

	p1 := m.Get("g1")
	p2 := m.Get("g1")
	if p1 != p2 {
		t.Error("expected the same player for a guild")
	}
	if m.Peek("g2") != nil {
		t.Error("Peek must not create players")
	}
	m.Get("g2")
	if n := built.Load(); n != 2 {
		t.Errorf("expected 2 players built, got %d", n)
	}
}

func TestManagerSweepEvictsIdleDisconnected(t *testing.T) {
	sink := newFakeSink()
	conn := &fakeConnector{sink: sink}
	m := NewManager(func(guildID string) *Player {
		return NewPlayer(guildID, NewSession(nil, 0.05), &fakeCache{}, Options{})
	}, time.Hour)

	idle := m.Get("idle")
	fresh := m.Get("fresh")
	live := m.Get("live")
	if err := live.Connect(context.Background(), conn, "vc"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = live.Disconnect() })

	old := time.Now().Add(-2 * time.Hour)
	for _, p := range []*Player{idle, live} {
		p.mu.Lock()
		p.lastActive = old
		p.mu.Unlock()
	}
	_ = fresh

	evicted := m.Sweep(time.Now())
	if !slices.Equal(evicted, []string{"idle"}) {
		t.Fatalf("expected only idle evicted, got %v", evicted)
	}
	if m.Peek("idle") != nil {
		t.Error("idle player still present")
	}
	if m.Peek("fresh") == nil || m.Peek("live") == nil {
		t.Error("active players must survive the sweep")
	}
	if m.Get("idle") == idle {
		t.Error("expected a new player after eviction")
	}
}

func TestManagerSweepDisabled(t *testing.T) {
	m := NewManager(func(guildID string) *Player {
		return NewPlayer(guildID, NewSession(nil, 0), &fakeCache{}, Options{})
	}, 0)
	p := m.Get("g")
	p.mu.Lock()
	p.lastActive = time.Time{}
	p.mu.Unlock()
	if ids := m.Sweep(time.Now()); len(ids) != 0 {
		t.Errorf("expected no eviction with zero ttl, got %v", ids)
	}
}

func TestManagerGetRefreshesIdleTimer(t *testing.T) {
	m := NewManager(func(guildID string) *Player {
		return NewPlayer(guildID, NewSession(nil, 0.05), &fakeCache{}, Options{})
	}, time.Hour)

	p := m.Get("g1")
	p.mu.Lock()
	p.lastActive = time.Now().Add(-2 * time.Hour)
	p.mu.Unlock()

	if again := m.Get("g1"); again != p {
		t.Fatal("expected the existing player")
	}
	if evicted := m.Sweep(time.Now()); len(evicted) != 0 {
		t.Fatalf("player fetched for a command was evicted: %v", evicted)
	}
	if m.Peek("g1") != p {
		t.Fatal("player missing after sweep")
	}
}
