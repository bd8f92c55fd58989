// Package observer receives per-query classification reports from the
// pipeline and maintains a recency-ordered view for display surfaces.
package observer

import "time"

// Observation is one classified hostname as last seen by the pipeline.
type Observation struct {
	Hostname    string
	Blocked     bool
	UserBlocked bool
	LastSeen    time.Time
}

// Sink receives one report per classified query, blocked or allowed.
// Implementations must be safe for calls from the pipeline goroutine and
// must not block it.
type Sink interface {
	Report(hostname string, blocked, userBlocked bool)
}
