package source

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/JakeTRogers/geoBuddy/logger"
	"github.com/JakeTRogers/geoBuddy/metrics"
	"github.com/JakeTRogers/geoBuddy/tree"
)

// Instrumented wraps a Source and records fetch counts and durations.
type Instrumented struct {
	next    Source
	metrics *metrics.Metrics
	clock   clockwork.Clock
}

// NewInstrumented decorates next. A nil clock uses the real clock.
func NewInstrumented(next Source, m *metrics.Metrics, clock clockwork.Clock) *Instrumented {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Instrumented{next: next, metrics: m, clock: clock}
}

func (s *Instrumented) Roots(ctx context.Context) (tree.Forest, error) {
	start := s.clock.Now()
	roots, err := s.next.Roots(ctx)
	s.observe("root", "", start, len(roots), err)
	return roots, err
}

func (s *Instrumented) Children(ctx context.Context, parentID string) ([]tree.Node, error) {
	label := "invalid"
	if kind, _, err := tree.Decode(parentID); err == nil {
		label = kind.String()
	}

	start := s.clock.Now()
	children, err := s.next.Children(ctx, parentID)
	s.observe(label, parentID, start, len(children), err)
	return children, err
}

func (s *Instrumented) observe(kind, parentID string, start time.Time, n int, err error) {
	elapsed := s.clock.Since(start)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.Fetches.WithLabelValues(kind, outcome).Inc()
	s.metrics.FetchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())

	l := logger.GetLogger()
	if err != nil {
		l.Warn().Err(err).Str("parent", parentID).Dur("elapsed", elapsed).Msg("fetch failed")
		return
	}
	l.Debug().Str("parent", parentID).Int("nodes", n).Dur("elapsed", elapsed).Msg("fetch complete")
}
