package repository

import "database/sql"

type Repo struct {
	db *sql.DB
}

type Settings struct {
	GuildID      string
	Volume       int // percent
	ChimeEnabled bool
}

type Playlist struct {
	GuildID   string
	Source    string
	TrackIDs  []string
	Author    string
	UpdatedAt int64
}
