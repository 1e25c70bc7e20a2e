package triage

import (
	"context"
	"errors"
	"log"
	"time"

	"sahayak/grievance"
)

// Sweeper escalates grievances past their SLA deadline on a fixed interval.
// A failed tick is logged and retried on the next one; the sweep never takes
// the engine down.
type Sweeper struct {
	svc      *Service
	repo     grievance.Repository
	interval time.Duration
	batch    int
	now      func() time.Time
}

func NewSweeper(svc *Service, repo grievance.Repository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		svc:      svc,
		repo:     repo,
		interval: interval,
		batch:    100,
		now:      time.Now,
	}
}

func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			escalated, err := s.SweepOnce(ctx)
			if err != nil {
				log.Printf("sla sweep: %v", err)
				continue
			}
			if escalated > 0 {
				log.Printf("sla sweep: escalated %d grievances", escalated)
			}
		}
	}
}

// SweepOnce escalates every overdue non-terminal grievance it can find and
// returns the count. Per-record conflicts are skipped, not failures: a
// concurrent operator transition simply wins and the record is revisited on
// the next tick if still overdue.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	overdue, err := s.repo.ListOverdue(ctx, s.now(), s.batch)
	if err != nil {
		return 0, err
	}

	escalated := 0
	for _, g := range overdue {
		if _, err := s.svc.Escalate(ctx, g.ID, nil); err != nil {
			if errors.Is(err, ErrConflict) || errors.Is(err, grievance.ErrNotFound) {
				continue
			}
			return escalated, err
		}
		escalated++
	}
	return escalated, nil
}
