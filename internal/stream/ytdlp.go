package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	ytdlp "github.com/lrstanley/go-ytdlp"
)

var installOnce sync.Once

// EnsureYtdlp installs the yt-dlp binary on first use.
func EnsureYtdlp(ctx context.Context) {
	installOnce.Do(func() {
		if _, err := ytdlp.Install(ctx, nil); err != nil {
			slog.Warn("yt-dlp install failed, relying on PATH", "err", err)
		}
	})
}

// YtdlpOptions carries the YouTube credentials handed to every yt-dlp call.
type YtdlpOptions struct {
	CookiesPath string
	POToken     string
}

func (o YtdlpOptions) apply(cmd *ytdlp.Command) *ytdlp.Command {
	cmd = cmd.IgnoreConfig().NoWarnings()
	if o.CookiesPath != "" {
		cmd = cmd.Cookies(o.CookiesPath)
	}
	args := "youtube:player-client=default,mweb"
	if o.POToken != "" {
		args += ";po_token=" + o.POToken
	}
	return cmd.ExtractorArgs(args)
}

func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func PlaylistURL(id string) string {
	return "https://www.youtube.com/playlist?list=" + id
}

func wrapYtdlpErr(what string, err error) error {
	if strings.Contains(err.Error(), "Sign in to confirm") {
		return fmt.Errorf("yt-dlp %s failed (cookies or PO token may be required): %w", what, err)
	}
	return fmt.Errorf("yt-dlp %s failed: %w", what, err)
}

// helpers to safely read pointer fields with defaults
func s(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func f(ptr *float64) float64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}

// ytdlpSearch resolves the first YouTube result for query.
func ytdlpSearch(ctx context.Context, opts YtdlpOptions, query string) (*Result, error) {
	EnsureYtdlp(ctx)
	cmd := opts.apply(ytdlp.New()).
		FlatPlaylist().
		DumpJSON()

	res, err := cmd.Run(ctx, "ytsearch1:"+query)
	if err != nil {
		return nil, wrapYtdlpErr("search", err)
	}
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp json: %w", err)
	}
	for _, info := range infos {
		if info == nil {
			continue
		}
		if len(info.Entries) == 0 && info.ID != "" {
			return &Result{ID: info.ID, Title: s(info.Title), Channel: s(info.Uploader), Seconds: int(f(info.Duration))}, nil
		}
		for _, e := range info.Entries {
			if e != nil && e.ID != "" {
				return &Result{ID: e.ID, Title: s(e.Title), Channel: s(e.Uploader), Seconds: int(f(e.Duration))}, nil
			}
		}
	}
	return nil, ErrNoResults
}
