package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Downloader writes the audio for a track id into dst.
type Downloader interface {
	Download(ctx context.Context, id, dst string) error
}

// Index tracks cached entry sizes and access times.
type Index interface {
	CacheTouch(ctx context.Context, hash string, size int64, created bool) error
	CacheRemove(ctx context.Context, hash string) error
	CacheTotalBytes(ctx context.Context) (int64, error)
	CacheOldest(ctx context.Context, keep string) (string, error)
}

const ext = ".ogg"

var safeKey = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

type FileCache struct {
	dir   string
	limit int64
	index Index
	dl    Downloader

	group singleflight.Group
	mu    sync.Mutex
}

func NewFileCache(dir string, limit int64, index Index, dl Downloader) *FileCache {
	return &FileCache{dir: dir, limit: limit, index: index, dl: dl}
}

// HashKey maps a track id to its on-disk key. Video ids are used as-is.
func (c *FileCache) HashKey(id string) string {
	if safeKey.MatchString(id) {
		return id
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

func (c *FileCache) PathFor(key string) string {
	return filepath.Join(c.dir, key+ext)
}

func (c *FileCache) Get(ctx context.Context, key string) (string, bool) {
	p := c.PathFor(key)
	if _, err := os.Stat(p); err == nil {
		_ = c.index.CacheTouch(ctx, key, 0, false)
		return p, true
	}
	_ = c.index.CacheRemove(ctx, key)
	return "", false
}

// Materialize returns the local path of the track, downloading it first when
// needed. Concurrent calls for the same id share one download.
func (c *FileCache) Materialize(ctx context.Context, id string) (string, error) {
	key := c.HashKey(id)
	if p, ok := c.Get(ctx, key); ok {
		return p, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// callers may give up waiting; the download itself keeps going
		dctx := context.WithoutCancel(ctx)
		if p, ok := c.Get(dctx, key); ok {
			return p, nil
		}
		return c.download(dctx, id, key)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Prefetch starts a background Materialize for id.
func (c *FileCache) Prefetch(id string) {
	go func() {
		if _, err := c.Materialize(context.Background(), id); err != nil {
			slog.Debug("prefetch failed", "id", id, "err", err)
		}
	}()
}

func (c *FileCache) download(ctx context.Context, id, key string) (string, error) {
	tmpDir := filepath.Join(c.dir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", err
	}
	tmp := filepath.Join(tmpDir, key+ext)
	_ = os.Remove(tmp)

	if err := c.dl.Download(ctx, id, tmp); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("download %s: %w", id, err)
	}
	final := c.PathFor(key)
	if err := c.commit(ctx, tmp, final, key); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit %s: %w", id, err)
	}
	slog.Debug("cached track", "id", id, "path", final)
	return final, nil
}

func (c *FileCache) commit(ctx context.Context, tmp, final, key string) error {
	info, err := os.Stat(tmp)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("empty download")
	}
	if err := os.Rename(tmp, final); err != nil {
		return err
	}
	if err := c.index.CacheTouch(ctx, key, info.Size(), true); err != nil {
		slog.Warn("cache index update failed", "key", key, "err", err)
		return nil
	}
	if err := c.evictIfNeeded(ctx, key); err != nil {
		slog.Warn("cache eviction failed", "err", err)
	}
	return nil
}

func (c *FileCache) evictIfNeeded(ctx context.Context, keep string) error {
	if c.limit <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	total, err := c.index.CacheTotalBytes(ctx)
	if err != nil {
		return err
	}
	for total > c.limit {
		oldest, err := c.index.CacheOldest(ctx, keep)
		if err != nil {
			// only the fresh entry is left
			return nil
		}
		_ = os.Remove(c.PathFor(oldest))
		_ = c.index.CacheRemove(ctx, oldest)
		slog.Debug("evicted cached track", "key", oldest)
		total, err = c.index.CacheTotalBytes(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}
