package autocomplete

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/jukebox/internal/spotify"
	"github.com/sonroyaalmerol/jukebox/internal/utils"
)

// Discord rejects choice names and values longer than this.
const maxChoiceLen = 100

var suggestURL = "https://suggestqueries.google.com/complete/search"

var httpClient = &http.Client{Timeout: 2 * time.Second}

func GetYouTubeSuggestions(ctx context.Context, query string) ([]string, error) {
	u, _ := url.Parse(suggestURL)
	q := u.Query()
	q.Set("client", "firefox")
	q.Set("ds", "yt")
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	utils.SetBrowserHeaders(req)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggest: status %d", resp.StatusCode)
	}
	var parsed []any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed) < 2 {
		return nil, nil
	}
	arr, ok := parsed[1].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// Suggestions returns search choices from YouTube, topped up with Spotify
// track names when a client is configured. Values are plain search text.
func Suggestions(ctx context.Context, query string, sp *spotify.Client, limit int) []*discordgo.ApplicationCommandOptionChoice {
	if limit <= 0 {
		limit = 10
	}
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, limit)
	add := func(name, value string) {
		if len(out) >= limit || value == "" {
			return
		}
		out = append(out, &discordgo.ApplicationCommandOptionChoice{
			Name:  utils.Truncate(name, maxChoiceLen),
			Value: utils.Truncate(value, maxChoiceLen),
		})
	}

	yt, err := GetYouTubeSuggestions(ctx, query)
	if err != nil {
		slog.Debug("youtube suggestions failed", "query", query, "err", err)
	}
	ytLimit := limit
	if sp != nil {
		ytLimit = limit - limit/2
	}
	for i := 0; i < len(yt) && i < ytLimit; i++ {
		add("YouTube: "+yt[i], yt[i])
	}

	if sp != nil {
		tracks, err := sp.SearchTracks(ctx, query, limit/2)
		if err != nil {
			slog.Debug("spotify suggestions failed", "query", query, "err", err)
		}
		for _, t := range tracks {
			add("Spotify: 🎵 "+t.Query(), t.Query())
		}
	}
	return out
}
