package stream

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

var ErrNoResults = errors.New("no results")

type Source string

const (
	SourceYouTube Source = "youtube"
	SourceMusic   Source = "music"
)

// Result is a single playable search hit.
type Result struct {
	ID      string
	Title   string
	Channel string
	Seconds int
}

type Searcher struct {
	opts YtdlpOptions
}

func NewSearcher(opts YtdlpOptions) *Searcher {
	return &Searcher{opts: opts}
}

// First returns the top hit for query. YouTube Music is tried first for
// SourceMusic; yt-dlp is the last resort for both sources.
func (s *Searcher) First(ctx context.Context, query string, src Source) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrNoResults
	}
	if src == SourceMusic {
		r, err := searchMusic(query)
		if err == nil {
			return r, nil
		}
		slog.Debug("ytmusic search failed", "query", query, "err", err)
	}
	r, err := searchYouTube(ctx, query)
	if err == nil {
		return r, nil
	}
	slog.Debug("ytsearch failed", "query", query, "err", err)
	return ytdlpSearch(ctx, s.opts, query)
}

func searchYouTube(ctx context.Context, query string) (*Result, error) {
	c := ytsearch.NewClient(nil)
	res, err := c.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	for _, v := range res.Results {
		if v.VideoID == "" {
			continue
		}
		return &Result{
			ID:      v.VideoID,
			Title:   v.Title,
			Channel: v.Channel,
			Seconds: ParseClock(v.Duration),
		}, nil
	}
	return nil, ErrNoResults
}

func searchMusic(query string) (*Result, error) {
	r, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil, err
	}
	for _, t := range r.Tracks {
		if t.VideoID == "" {
			continue
		}
		artist := ""
		if len(t.Artists) > 0 {
			artist = t.Artists[0].Name
		}
		return &Result{ID: t.VideoID, Title: t.Title, Channel: artist}, nil
	}
	return nil, ErrNoResults
}

// ParseClock parses "m:ss" or "h:mm:ss" into seconds. Malformed input yields 0.
func ParseClock(v string) int {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	for _, p := range parts {
		if p == "" {
			return 0
		}
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return 0
			}
			n = n*10 + int(c-'0')
		}
		total = total*60 + n
	}
	return total
}
