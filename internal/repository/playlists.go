package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type PlaylistService struct {
	repo *Repo
}

func NewPlaylistService(repo *Repo) *PlaylistService {
	return &PlaylistService{repo: repo}
}

func (p *PlaylistService) Save(ctx context.Context, guild, author, source string, ids []string) error {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	return p.repo.SavePlaylist(ctx, &Playlist{
		GuildID: guild, Author: author, Source: strings.TrimSpace(source), TrackIDs: clean,
	})
}

// Restore returns the last playlist saved for the guild, or nil when there is
// none.
func (p *PlaylistService) Restore(ctx context.Context, guild string) ([]string, error) {
	pl, err := p.repo.GetPlaylist(ctx, guild)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pl.TrackIDs, nil
}
