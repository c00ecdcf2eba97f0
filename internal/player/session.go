package player

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Session is the per-guild playback state: the source playlist, the queue
// consumed from it, the volume and the playing flag.
type Session struct {
	mu        sync.Mutex
	playlist  []string
	queue     []string
	volume    float64
	isPlaying bool

	intN func(n int) int
}

func NewSession(playlist []string, volume float64) *Session {
	s := &Session{intN: rand.IntN}
	s.SetVolume(volume)
	s.ReplacePlaylist(playlist, true)
	return s
}

// Initialize replaces the queue with a copy of source, dropping blank ids,
// permuted uniformly at random when shuffle is set.
func (s *Session) Initialize(source []string, shuffle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked(source, shuffle)
}

func (s *Session) initLocked(source []string, shuffle bool) {
	q := make([]string, 0, len(source))
	for _, id := range source {
		if id = strings.TrimSpace(id); id != "" {
			q = append(q, id)
		}
	}
	if shuffle {
		for i := len(q) - 1; i > 0; i-- {
			j := s.intN(i + 1)
			q[i], q[j] = q[j], q[i]
		}
	}
	s.queue = q
}

// Next pops the head of the queue. When that empties the queue it is refilled
// from the playlist, shuffled.
func (s *Session) Next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		s.initLocked(s.playlist, true)
	}
	if len(s.queue) == 0 {
		return "", false
	}
	id := s.queue[0]
	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		s.initLocked(s.playlist, true)
	}
	return id, true
}

func (s *Session) PushFront(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append([]string{id}, s.queue...)
}

func (s *Session) ReplacePlaylist(list []string, shuffle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlist = append([]string(nil), list...)
	s.initLocked(s.playlist, shuffle)
}

// Shuffle rebuilds the queue from the current playlist in random order.
func (s *Session) Shuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked(s.playlist, true)
}

func (s *Session) Peek() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return "", false
	}
	return s.queue[0], true
}

// Upcoming returns up to n queued ids without consuming them.
func (s *Session) Upcoming(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n = min(n, len(s.queue))
	return append([]string(nil), s.queue[:n]...)
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Session) PlaylistLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.playlist)
}

func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetVolume clamps v to [0, 1] and returns the stored value.
func (s *Session) SetVolume(v float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = max(0, min(1, v))
	return s.volume
}

func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPlaying
}

func (s *Session) setPlaying(v bool) {
	s.mu.Lock()
	s.isPlaying = v
	s.mu.Unlock()
}
