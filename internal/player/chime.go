package player

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// NextChime returns the next top of the hour strictly after now, in now's
// location.
func NextChime(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour()+1, 0, 0, 0, now.Location())
}

// Chimer plays an audio asset on every connected player at the top of each
// hour.
type Chimer struct {
	Path    string
	Manager *Manager
	// Enabled reports whether a guild wants the chime.
	Enabled func(ctx context.Context, guildID string) bool
	Now     func() time.Time
}

func (c *Chimer) Run(ctx context.Context) error {
	if c.Path == "" {
		slog.Info("hourly chime disabled")
		<-ctx.Done()
		return nil
	}
	if _, err := os.Stat(c.Path); err != nil {
		slog.Warn("hourly chime disabled, asset not readable", "path", c.Path, "err", err)
		<-ctx.Done()
		return nil
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	for {
		wait := NextChime(now()).Sub(now())
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		c.Ring(ctx)
	}
}

// Ring plays the chime on every eligible player and returns how many were
// interrupted.
func (c *Chimer) Ring(ctx context.Context) int {
	n := 0
	c.Manager.Each(func(p *Player) {
		if !p.Connected() {
			return
		}
		if c.Enabled != nil && !c.Enabled(ctx, p.GuildID()) {
			return
		}
		if p.Chime(c.Path) {
			n++
		}
	})
	if n > 0 {
		slog.Info("hourly chime", "players", n)
	}
	return n
}
