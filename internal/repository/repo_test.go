package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := OpenDB(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	r := NewRepo(db)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := openTestRepo(t)

	if _, err := r.GetSettings(ctx, "g1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows before upsert, got %v", err)
	}

	s, err := r.UpsertSettings(ctx, "g1", 7)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if s.Volume != 7 || !s.ChimeEnabled {
		t.Errorf("unexpected defaults: %+v", s)
	}

	s.Volume = 40
	s.ChimeEnabled = false
	if err := r.UpdateSettings(ctx, s); err != nil {
		t.Fatalf("update: %v", err)
	}

	// a second upsert must not reset stored values
	got, err := r.UpsertSettings(ctx, "g1", 7)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got.Volume != 40 || got.ChimeEnabled {
		t.Errorf("expected stored settings to survive upsert, got %+v", got)
	}
}

func TestPlaylistService(t *testing.T) {
	ctx := context.Background()
	svc := NewPlaylistService(openTestRepo(t))

	ids, err := svc.Restore(ctx, "g1")
	if err != nil || ids != nil {
		t.Fatalf("expected no playlist, got %v, %v", ids, err)
	}

	if err := svc.Save(ctx, "g1", "u1", " PLxyz ", []string{"a", "", " b ", "a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	ids, err = svc.Restore(ctx, "g1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	want := []string{"a", "b", "a"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], ids[i])
		}
	}

	if err := svc.Save(ctx, "g1", "u2", "PLother", []string{"c"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	ids, _ = svc.Restore(ctx, "g1")
	if len(ids) != 1 || ids[0] != "c" {
		t.Errorf("expected overwrite to replace ids, got %v", ids)
	}
}

func TestCacheIndex(t *testing.T) {
	ctx := context.Background()
	r := openTestRepo(t)

	for _, h := range []string{"a", "b", "c"} {
		if err := r.CacheTouch(ctx, h, 10, true); err != nil {
			t.Fatalf("touch %s: %v", h, err)
		}
	}
	total, err := r.CacheTotalBytes(ctx)
	if err != nil || total != 30 {
		t.Fatalf("expected 30 bytes, got %d (%v)", total, err)
	}

	oldest, err := r.CacheOldest(ctx, "")
	if err != nil || oldest != "a" {
		t.Fatalf("expected oldest a, got %q (%v)", oldest, err)
	}
	oldest, _ = r.CacheOldest(ctx, "a")
	if oldest != "b" {
		t.Errorf("expected b when a is kept, got %q", oldest)
	}

	if err := r.CacheTouch(ctx, "a", 0, false); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	oldest, _ = r.CacheOldest(ctx, "")
	if oldest != "b" {
		t.Errorf("expected b after touching a, got %q", oldest)
	}

	if err := r.CacheRemove(ctx, "b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	total, _ = r.CacheTotalBytes(ctx)
	if total != 20 {
		t.Errorf("expected 20 bytes after removal, got %d", total)
	}
}

func TestOpenDB(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		db, err := OpenDB(dir)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		_ = db.Close()
	}

	mem, err := OpenDB("")
	if err != nil {
		t.Fatalf("open in-memory: %v", err)
	}
	defer mem.Close()
	var n int
	if err := mem.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("settings table: n=%d err=%v", n, err)
	}
}
