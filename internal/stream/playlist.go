package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	ytdlp "github.com/lrstanley/go-ytdlp"
)

// YtdlpPlaylist lists the video ids of a YouTube playlist without resolving
// each entry. limit <= 0 means no limit.
func YtdlpPlaylist(ctx context.Context, opts YtdlpOptions, url string, limit int) ([]string, error) {
	EnsureYtdlp(ctx)
	cmd := opts.apply(ytdlp.New()).
		FlatPlaylist().
		DumpJSON()
	if limit > 0 {
		cmd = cmd.PlaylistItems(fmt.Sprintf("1-%d", limit))
	}

	slog.Debug("fetching playlist", "url", url)
	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, wrapYtdlpErr("playlist", err)
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp playlist json for %s: %w", url, err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, fmt.Errorf("yt-dlp returned empty playlist info for %s", url)
	}

	pl := infos[0]
	out := make([]string, 0, len(pl.Entries))
	for _, e := range pl.Entries {
		if e == nil || strings.TrimSpace(e.ID) == "" {
			continue
		}
		out = append(out, e.ID)
	}
	slog.Debug("playlist parsed", "url", url, "entries", len(pl.Entries), "ids", len(out))
	return out, nil
}
