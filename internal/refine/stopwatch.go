package refine

import (
	"fmt"
	"strings"
	"time"
)

// Stopwatch accumulates named phase timings for the run report. It is a
// plain value owned by its caller; there is no process-wide timer table.
type Stopwatch struct {
	started map[string]time.Time
	elapsed map[string]time.Duration
	order   []string
}

// NewStopwatch returns an empty stopwatch.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{
		started: make(map[string]time.Time),
		elapsed: make(map[string]time.Duration),
	}
}

// Start begins (or resumes) timing the named phase.
func (s *Stopwatch) Start(label string) {
	if _, seen := s.elapsed[label]; !seen {
		s.order = append(s.order, label)
		s.elapsed[label] = 0
	}
	s.started[label] = time.Now()
}

// Stop ends timing the named phase and returns its accumulated total.
func (s *Stopwatch) Stop(label string) time.Duration {
	if t, ok := s.started[label]; ok {
		s.elapsed[label] += time.Since(t)
		delete(s.started, label)
	}
	return s.elapsed[label]
}

// Elapsed returns the accumulated total for a phase.
func (s *Stopwatch) Elapsed(label string) time.Duration {
	return s.elapsed[label]
}

// Report renders one line per phase in first-start order.
func (s *Stopwatch) Report() string {
	var b strings.Builder
	for _, l := range s.order {
		fmt.Fprintf(&b, "%-20s %s\n", l, s.elapsed[l].Round(time.Millisecond))
	}
	return b.String()
}
