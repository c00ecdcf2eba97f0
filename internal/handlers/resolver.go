package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sonroyaalmerol/jukebox/internal/spotify"
	"github.com/sonroyaalmerol/jukebox/internal/stream"
	"golang.org/x/sync/errgroup"
)

// TrackResolver looks tracks up on YouTube and, when configured, maps
// Spotify links onto YouTube videos.
type TrackResolver struct {
	Searcher *stream.Searcher
	Ytdlp    stream.YtdlpOptions
	Spotify  *spotify.Client
	Limit    int
}

func (t *TrackResolver) Search(ctx context.Context, query string, src stream.Source) (*stream.Result, error) {
	return t.Searcher.First(ctx, query, src)
}

func (t *TrackResolver) Playlist(ctx context.Context, source string) ([]string, error) {
	if spotify.IsSpotify(source) {
		return t.spotifyPlaylist(ctx, source)
	}
	return stream.YtdlpPlaylist(ctx, t.Ytdlp, source, t.Limit)
}

func (t *TrackResolver) spotifyPlaylist(ctx context.Context, source string) ([]string, error) {
	if t.Spotify == nil {
		return nil, fmt.Errorf("spotify is not configured")
	}
	tracks, err := t.Spotify.Tracks(ctx, source, t.Limit)
	if err != nil {
		return nil, fmt.Errorf("spotify %s: %w", source, err)
	}

	ids := make([]string, len(tracks))
	var mu sync.Mutex
	missed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, tr := range tracks {
		g.Go(func() error {
			res, err := t.Searcher.First(gctx, tr.Query(), stream.SourceMusic)
			if err != nil {
				mu.Lock()
				missed++
				mu.Unlock()
				slog.Debug("no youtube match for spotify track", "query", tr.Query(), "err", err)
				return nil
			}
			ids[i] = res.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := ids[:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	if missed > 0 {
		slog.Info("spotify tracks without a match", "source", source, "missed", missed, "matched", len(out))
	}
	return out, nil
}
