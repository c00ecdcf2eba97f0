package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Close() error { return r.db.Close() }

// UpsertSettings creates the guild row with the given default volume when it
// does not exist yet and returns the stored settings.
func (r *Repo) UpsertSettings(ctx context.Context, guild string, defaultVolume int) (*Settings, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings(guild_id, volume) VALUES (?, ?)`, guild, defaultVolume,
	); err != nil {
		return nil, err
	}
	return r.GetSettings(ctx, guild)
}

func (r *Repo) GetSettings(ctx context.Context, guild string) (*Settings, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT guild_id, volume, chime_enabled
	FROM settings WHERE guild_id = ?`, guild)

	var s Settings
	var chime int
	if err := row.Scan(&s.GuildID, &s.Volume, &chime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	s.ChimeEnabled = chime != 0
	return &s, nil
}

func (r *Repo) UpdateSettings(ctx context.Context, s *Settings) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE settings SET
		  volume=?,
		  chime_enabled=?
		WHERE guild_id=?`,
		s.Volume, boolToInt(s.ChimeEnabled), s.GuildID,
	)
	return err
}

func (r *Repo) SavePlaylist(ctx context.Context, p *Playlist) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO playlists(guild_id, source, track_ids, author_id, updated_at) VALUES (?,?,?,?,?)
		ON CONFLICT(guild_id) DO UPDATE SET
		  source=excluded.source,
		  track_ids=excluded.track_ids,
		  author_id=excluded.author_id,
		  updated_at=excluded.updated_at`,
		p.GuildID, p.Source, strings.Join(p.TrackIDs, "\n"), p.Author, time.Now().Unix(),
	)
	return err
}

func (r *Repo) GetPlaylist(ctx context.Context, guild string) (*Playlist, error) {
	row := r.db.QueryRowContext(ctx, `SELECT guild_id, source, track_ids, author_id, updated_at FROM playlists WHERE guild_id=?`, guild)
	var p Playlist
	var ids string
	if err := row.Scan(&p.GuildID, &p.Source, &ids, &p.Author, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if ids != "" {
		p.TrackIDs = strings.Split(ids, "\n")
	}
	return &p, nil
}

func (r *Repo) CacheTouch(ctx context.Context, hash string, size int64, created bool) error {
	now := time.Now().UnixNano()
	if created {
		_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO file_cache(hash,bytes,accessed_at,created_at) VALUES (?,?,?,COALESCE((SELECT created_at FROM file_cache WHERE hash=?),?))`,
			hash, size, now, hash, now)
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE file_cache SET accessed_at=? WHERE hash=?`, now, hash)
	return err
}

func (r *Repo) CacheRemove(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM file_cache WHERE hash=?`, hash)
	return err
}

func (r *Repo) CacheTotalBytes(ctx context.Context) (int64, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(bytes),0) FROM file_cache`)
	var v int64
	if err := row.Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// CacheOldest returns the least recently accessed entry other than keep.
func (r *Repo) CacheOldest(ctx context.Context, keep string) (string, error) {
	row := r.db.QueryRowContext(ctx, `SELECT hash FROM file_cache WHERE hash <> ? ORDER BY accessed_at ASC LIMIT 1`, keep)
	var hash string
	if err := row.Scan(&hash); err != nil {
		return "", err
	}
	return hash, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
