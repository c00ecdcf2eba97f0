package spotify

import "testing"

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		typ     string
		id      string
		wantErr bool
	}{
		{"spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", "playlist", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc", "playlist", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"https://open.spotify.com/intl-de/album/4aawyAB9vmqN3uQ7FjRGTy", "album", "4aawyAB9vmqN3uQ7FjRGTy", false},
		{"https://open.spotify.com/show/abc", "", "", true},
		{"https://example.com/playlist/abc", "", "", true},
		{"spotify:playlist", "", "", true},
		{"https://open.spotify.com/playlist/", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			typ, id, err := ParseID(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s %s", typ, id)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if typ != tt.typ || string(id) != tt.id {
				t.Errorf("got %s/%s, want %s/%s", typ, id, tt.typ, tt.id)
			}
		})
	}
}

func TestTrackQuery(t *testing.T) {
	if got := (Track{Name: "Song", Artist: "Band"}).Query(); got != "Band - Song" {
		t.Errorf("unexpected query %q", got)
	}
	if got := (Track{Name: "Song"}).Query(); got != "Song" {
		t.Errorf("unexpected query %q", got)
	}
}
