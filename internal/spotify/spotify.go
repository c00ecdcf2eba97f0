package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

type Track struct {
	Name   string
	Artist string
}

// Query is the text used to find the track on YouTube.
func (t Track) Query() string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Artist + " - " + t.Name
}

type Client struct {
	raw *spotify.Client
}

func NewClientCredentials(clientID, clientSecret string) *Client {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(context.Background())
	return &Client{raw: spotify.New(httpClient, spotify.WithRetry(true))}
}

func IsSpotify(s string) bool {
	return strings.HasPrefix(s, "spotify:") || strings.Contains(s, "open.spotify.com")
}

// ParseID accepts spotify:TYPE:ID URIs and open.spotify.com URLs.
func ParseID(raw string) (typ string, id spotify.ID, err error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) == 3 && parts[2] != "" {
			return parts[1], spotify.ID(parts[2]), nil
		}
		return "", "", fmt.Errorf("invalid spotify URI")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Host != "open.spotify.com" && u.Host != "www.open.spotify.com" {
		return "", "", fmt.Errorf("not a spotify URL")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// localized links look like /intl-de/playlist/ID
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid spotify URL path")
	}
	switch parts[0] {
	case "album", "playlist", "track", "artist":
		return parts[0], spotify.ID(parts[1]), nil
	}
	return "", "", fmt.Errorf("unsupported spotify type %q", parts[0])
}

// Tracks lists up to limit tracks behind a Spotify link. limit <= 0 means no
// limit.
func (c *Client) Tracks(ctx context.Context, raw string, limit int) ([]Track, error) {
	typ, id, err := ParseID(raw)
	if err != nil {
		return nil, err
	}
	switch typ {
	case "playlist":
		return c.playlistTracks(ctx, id, limit)
	case "album":
		return c.albumTracks(ctx, id, limit)
	case "track":
		t, err := c.raw.GetTrack(ctx, id)
		if err != nil {
			return nil, err
		}
		return []Track{toTrack(t.SimpleTrack)}, nil
	case "artist":
		top, err := c.raw.GetArtistsTopTracks(ctx, id, "US")
		if err != nil {
			return nil, err
		}
		out := make([]Track, 0, len(top))
		for _, t := range top {
			if full(out, limit) {
				break
			}
			out = append(out, toTrack(t.SimpleTrack))
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported spotify type %q", typ)
}

func (c *Client) albumTracks(ctx context.Context, id spotify.ID, limit int) ([]Track, error) {
	page, err := c.raw.GetAlbumTracks(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []Track
	for {
		for _, t := range page.Tracks {
			if full(out, limit) {
				return out, nil
			}
			out = append(out, toTrack(t))
		}
		if page.Next == "" || full(out, limit) {
			return out, nil
		}
		if err := c.raw.NextPage(ctx, page); err != nil {
			return out, nil
		}
	}
}

func (c *Client) playlistTracks(ctx context.Context, id spotify.ID, limit int) ([]Track, error) {
	page, err := c.raw.GetPlaylistItems(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []Track
	for {
		for _, it := range page.Items {
			if it.Track.Track == nil {
				continue
			}
			if full(out, limit) {
				return out, nil
			}
			out = append(out, toTrack(it.Track.Track.SimpleTrack))
		}
		if page.Next == "" || full(out, limit) {
			return out, nil
		}
		if err := c.raw.NextPage(ctx, page); err != nil {
			return out, nil
		}
	}
}

// SearchTracks is used for autocomplete suggestions.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 10
	}
	res, err := c.raw.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, err
	}
	if res.Tracks == nil {
		return nil, nil
	}
	out := make([]Track, 0, len(res.Tracks.Tracks))
	for _, t := range res.Tracks.Tracks {
		out = append(out, toTrack(t.SimpleTrack))
	}
	return out, nil
}

func toTrack(t spotify.SimpleTrack) Track {
	artist := ""
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}
	return Track{Name: t.Name, Artist: artist}
}

func full(out []Track, limit int) bool {
	return limit > 0 && len(out) >= limit
}
