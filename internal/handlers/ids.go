package handlers

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIDRe    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	playlistIDRe = regexp.MustCompile(`^(PL|OL|UU|FL|LL|RD)[A-Za-z0-9_-]{10,}$`)
)

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
}

// ParseVideoID accepts a bare video id or a YouTube watch, short, embed or
// youtu.be URL.
func ParseVideoID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if videoIDRe.MatchString(raw) {
		return raw, true
	}
	u, ok := parseURL(raw)
	if !ok {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case host == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case youtubeHosts[host]:
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch {
		case len(parts) == 1 && parts[0] == "watch":
			id = u.Query().Get("v")
		case len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live" || parts[0] == "v"):
			id = parts[1]
		}
	}
	if !videoIDRe.MatchString(id) {
		return "", false
	}
	return id, true
}

// ParsePlaylistID accepts a bare playlist id or any YouTube URL carrying a
// list parameter.
func ParsePlaylistID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if playlistIDRe.MatchString(raw) {
		return raw, true
	}
	u, ok := parseURL(raw)
	if !ok {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if !youtubeHosts[host] && host != "youtu.be" {
		return "", false
	}
	id := u.Query().Get("list")
	if !playlistIDRe.MatchString(id) {
		return "", false
	}
	return id, true
}

func parseURL(raw string) (*url.URL, bool) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}
