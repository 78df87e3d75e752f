package session

import (
	"sync"
	"time"

	"github.com/askdb/askdb/internal/agent"
)

// Stats accumulates per-session counters. The loop itself is sequential but
// the summary can be read from a signal handler's goroutine, so access is
// guarded.
type Stats struct {
	mu        sync.Mutex
	startedAt time.Time

	turns     int
	succeeded int
	exhausted int
	fatal     int
	attempts  int
	queryTime time.Duration
}

// NewStats starts a session clock.
func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

// Record folds one turn's outcome into the counters.
func (s *Stats) Record(o agent.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns++
	s.attempts += o.Attempts
	s.queryTime += o.Elapsed
	switch o.Status {
	case agent.StatusSucceeded:
		s.succeeded++
	case agent.StatusExhausted:
		s.exhausted++
	default:
		s.fatal++
	}
}

// Summary returns the counters as structured log attributes.
func (s *Stats) Summary() []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return []any{
		"turns", s.turns,
		"succeeded", s.succeeded,
		"exhausted", s.exhausted,
		"fatal", s.fatal,
		"attempts", s.attempts,
		"query_time", s.queryTime.Round(time.Millisecond),
		"session_time", time.Since(s.startedAt).Round(time.Second),
	}
}
