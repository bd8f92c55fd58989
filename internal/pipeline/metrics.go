package pipeline

import "sync/atomic"

// counters holds the session's stage counters (atomic for thread-safety).
type counters struct {
	Received      atomic.Uint64
	Blocked       atomic.Uint64
	Forwarded     atomic.Uint64
	ForwardErrors atomic.Uint64
	Dropped       atomic.Uint64
	Written       atomic.Uint64
	WriteErrors   atomic.Uint64
}

// Stats is a point-in-time snapshot of a session's counters.
type Stats struct {
	Received      uint64
	Blocked       uint64
	Forwarded     uint64
	ForwardErrors uint64
	Dropped       uint64
	Written       uint64
	WriteErrors   uint64
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		Received:      s.stats.Received.Load(),
		Blocked:       s.stats.Blocked.Load(),
		Forwarded:     s.stats.Forwarded.Load(),
		ForwardErrors: s.stats.ForwardErrors.Load(),
		Dropped:       s.stats.Dropped.Load(),
		Written:       s.stats.Written.Load(),
		WriteErrors:   s.stats.WriteErrors.Load(),
	}
}
