package observer

import (
	"sync"
	"time"
)

// DefaultStoreLimit caps the store when no limit is given.
const DefaultStoreLimit = 100

// Store is a size-bounded, recency-ordered Sink. The most recently seen
// hostname is first; re-observing a hostname moves it to the front and
// refreshes its flags; the oldest entry is evicted past the limit.
//
// UI collaborators either poll Snapshot or consume the Subscribe channel.
type Store struct {
	mu      sync.Mutex
	limit   int
	entries []Observation // most recent first
	subs    []chan Observation

	now func() time.Time
}

// NewStore creates a Store keeping at most limit observations.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultStoreLimit
	}
	return &Store{limit: limit, now: time.Now}
}

// Report implements Sink.
func (s *Store) Report(hostname string, blocked, userBlocked bool) {
	obs := Observation{
		Hostname:    hostname,
		Blocked:     blocked,
		UserBlocked: userBlocked,
		LastSeen:    s.now(),
	}

	s.mu.Lock()
	for i, e := range s.entries {
		if e.Hostname == hostname {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	s.entries = append([]Observation{obs}, s.entries...)
	if len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}
	subs := make([]chan Observation, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	// Non-blocking fan-out: a slow subscriber misses updates rather than
	// stalling the pipeline.
	for _, ch := range subs {
		select {
		case ch <- obs:
		default:
		}
	}
}

// Snapshot returns the current observations, most recent first.
func (s *Store) Snapshot() []Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Observation, len(s.entries))
	copy(out, s.entries)
	return out
}

// Subscribe returns a channel receiving every subsequent observation.
// Delivery is best-effort; the channel buffer absorbs bursts.
func (s *Store) Subscribe() <-chan Observation {
	ch := make(chan Observation, 64)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}
