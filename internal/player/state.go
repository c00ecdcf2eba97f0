package player

import "errors"

type State int

const (
	StateDisconnected State = iota
	StateIdle
	StateResolving
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "disconnected"
}

var (
	ErrNotConnected   = errors.New("no active voice connection")
	ErrNothingPlaying = errors.New("nothing is playing")
)

// Status is a snapshot used by the queue and now-playing views.
type Status struct {
	GuildID   string
	ChannelID string
	State     State
	Current   string
	Volume    float64
	Upcoming  []string
	Queued    int
	Playlist  int
}
