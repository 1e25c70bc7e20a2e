package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"sahayak/grievance"
)

func openGrievance(id string) grievance.Grievance {
	return grievance.Grievance{
		ID:              id,
		ComplaintNumber: "MCD-2026-000001",
		Channel:         grievance.ChannelWeb,
		Category:        grievance.CategoryGarbage,
		Zone:            "rohini",
		Priority:        grievance.PriorityMedium,
		Status:          grievance.StatusOpen,
		CreatedAt:       time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newTestService(repo *fakeRepo) (*Service, *fakePool, *fakeTimeline, *fakeOutbox) {
	pool := &fakePool{}
	timeline := &fakeTimeline{}
	outbox := &fakeOutbox{}
	svc := NewService(pool, repo, timeline, outbox, DefaultWindows())
	return svc, pool, timeline, outbox
}

func TestTransition_OpenToInProgress(t *testing.T) {
	repo := newFakeRepo(openGrievance("g-1"))
	svc, pool, timeline, outbox := newTestService(repo)

	assignee := "sanitation-team-4"
	updated, err := svc.Transition(context.Background(), TransitionParams{
		GrievanceID: "g-1",
		Expected:    grievance.StatusOpen,
		Next:        grievance.StatusInProgress,
		AssignedTo:  &assignee,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}

	if updated.Status != grievance.StatusInProgress {
		t.Fatalf("expected in-progress, got %s", updated.Status)
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != assignee {
		t.Fatalf("expected assignee %q, got %v", assignee, updated.AssignedTo)
	}
	if pool.tx == nil || !pool.tx.committed {
		t.Fatal("expected transaction commit")
	}
	if len(timeline.entries) != 1 || timeline.entries[0].eventType != grievance.EventStatusChanged {
		t.Fatalf("expected one STATUS_CHANGED timeline event, got %+v", timeline.entries)
	}
	if len(outbox.entries) != 1 || outbox.entries[0].topic != grievance.TopicStatusChanged {
		t.Fatalf("expected one %s outbox entry, got %+v", grievance.TopicStatusChanged, outbox.entries)
	}
}

func TestTransition_OpenToInProgress_RequiresAssignee(t *testing.T) {
	repo := newFakeRepo(openGrievance("g-1"))
	svc, pool, _, _ := newTestService(repo)

	_, err := svc.Transition(context.Background(), TransitionParams{
		GrievanceID: "g-1",
		Expected:    grievance.StatusOpen,
		Next:        grievance.StatusInProgress,
	})
	if !errors.Is(err, ErrAssigneeRequired) {
		t.Fatalf("expected ErrAssigneeRequired, got %v", err)
	}
	if pool.tx != nil {
		t.Fatal("expected no transaction for rejected transition")
	}
}

func TestTransition_InvalidEdges(t *testing.T) {
	cases := []struct {
		name string
		from grievance.Status
		to   grievance.Status
	}{
		{"open to resolved", grievance.StatusOpen, grievance.StatusResolved},
		{"resolved to open", grievance.StatusResolved, grievance.StatusOpen},
		{"resolved to escalated", grievance.StatusResolved, grievance.StatusEscalated},
		{"in-progress to open", grievance.StatusInProgress, grievance.StatusOpen},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := openGrievance("g-1")
			g.Status = tc.from
			repo := newFakeRepo(g)
			svc, _, _, _ := newTestService(repo)

			_, err := svc.Transition(context.Background(), TransitionParams{
				GrievanceID: "g-1",
				Expected:    tc.from,
				Next:        tc.to,
			})
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestTransition_ResolveIsIdempotent(t *testing.T) {
	g := openGrievance("g-1")
	g.Status = grievance.StatusResolved
	resolvedAt := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	g.ResolvedAt = &resolvedAt
	repo := newFakeRepo(g)
	svc, pool, timeline, _ := newTestService(repo)

	again, err := svc.Transition(context.Background(), TransitionParams{
		GrievanceID: "g-1",
		Expected:    grievance.StatusResolved,
		Next:        grievance.StatusResolved,
	})
	if err != nil {
		t.Fatalf("idempotent resolve: %v", err)
	}
	if again.ResolvedAt == nil || !again.ResolvedAt.Equal(resolvedAt) {
		t.Fatalf("expected original resolved_at preserved, got %v", again.ResolvedAt)
	}
	if pool.tx != nil {
		t.Fatal("expected no write transaction for idempotent resolve")
	}
	if len(timeline.entries) != 0 {
		t.Fatalf("expected no timeline entries, got %+v", timeline.entries)
	}
}

func TestTransition_StaleResolvedExpectationConflicts(t *testing.T) {
	g := openGrievance("g-1")
	repo := newFakeRepo(g)
	svc, pool, timeline, _ := newTestService(repo)

	_, err := svc.Transition(context.Background(), TransitionParams{
		GrievanceID: "g-1",
		Expected:    grievance.StatusResolved,
		Next:        grievance.StatusResolved,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale resolved expectation, got %v", err)
	}
	if pool.tx != nil {
		t.Fatal("expected no write transaction for rejected transition")
	}
	if len(timeline.entries) != 0 {
		t.Fatalf("expected no timeline entries, got %+v", timeline.entries)
	}

	got, err := repo.Get(context.Background(), "g-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != grievance.StatusOpen || got.ResolvedAt != nil {
		t.Fatalf("expected record untouched, got status=%s resolved_at=%v", got.Status, got.ResolvedAt)
	}
}

func TestTransition_ResolveSetsResolvedAt(t *testing.T) {
	g := openGrievance("g-1")
	g.Status = grievance.StatusInProgress
	repo := newFakeRepo(g)
	svc, _, _, _ := newTestService(repo)

	frozen := time.Date(2026, 8, 3, 12, 30, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return frozen })

	updated, err := svc.Transition(context.Background(), TransitionParams{
		GrievanceID: "g-1",
		Expected:    grievance.StatusInProgress,
		Next:        grievance.StatusResolved,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(frozen) {
		t.Fatalf("expected resolved_at %v, got %v", frozen, updated.ResolvedAt)
	}
}

func TestTransition_StaleExpectedConflicts(t *testing.T) {
	g := openGrievance("g-1")
	g.Status = grievance.StatusInProgress
	repo := newFakeRepo(g)
	svc, pool, _, _ := newTestService(repo)

	// Caller read the record before another operator moved it along.
	_, err := svc.Transition(context.Background(), TransitionParams{
		GrievanceID: "g-1",
		Expected:    grievance.StatusEscalated,
		Next:        grievance.StatusResolved,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if pool.tx == nil || pool.tx.committed {
		t.Fatal("expected transaction rollback on conflict")
	}
	if !pool.tx.rolled {
		t.Fatal("expected rollback to be called")
	}
}

func TestTransition_MissingGrievance(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _, _ := newTestService(repo)

	_, err := svc.Transition(context.Background(), TransitionParams{
		GrievanceID: "nope",
		Expected:    grievance.StatusOpen,
		Next:        grievance.StatusEscalated,
	})
	if !errors.Is(err, grievance.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEscalate(t *testing.T) {
	repo := newFakeRepo(openGrievance("g-1"))
	svc, _, timeline, outbox := newTestService(repo)

	updated, err := svc.Escalate(context.Background(), "g-1", nil)
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if updated.Status != grievance.StatusEscalated {
		t.Fatalf("expected escalated, got %s", updated.Status)
	}
	if len(timeline.entries) != 1 || timeline.entries[0].eventType != grievance.EventEscalated {
		t.Fatalf("expected SLA_ESCALATED timeline event, got %+v", timeline.entries)
	}
	if len(outbox.entries) != 1 || outbox.entries[0].topic != grievance.TopicEscalated {
		t.Fatalf("expected %s outbox entry, got %+v", grievance.TopicEscalated, outbox.entries)
	}
}

func TestEscalate_AlreadyTerminalIsNoop(t *testing.T) {
	for _, status := range []grievance.Status{grievance.StatusEscalated, grievance.StatusResolved} {
		g := openGrievance("g-1")
		g.Status = status
		repo := newFakeRepo(g)
		svc, pool, _, _ := newTestService(repo)

		got, err := svc.Escalate(context.Background(), "g-1", nil)
		if err != nil {
			t.Fatalf("escalate %s: %v", status, err)
		}
		if got.Status != status {
			t.Fatalf("expected status %s unchanged, got %s", status, got.Status)
		}
		if pool.tx != nil {
			t.Fatalf("expected no transaction escalating a %s grievance", status)
		}
	}
}

func TestReclassify_RecomputesDeadlineFromCreation(t *testing.T) {
	g := openGrievance("g-1")
	repo := newFakeRepo(g)
	svc, _, timeline, outbox := newTestService(repo)

	updated, err := svc.Reclassify(context.Background(), ReclassifyParams{
		GrievanceID: "g-1",
		Category:    grievance.CategorySewage,
		Priority:    grievance.PriorityCritical,
	})
	if err != nil {
		t.Fatalf("reclassify: %v", err)
	}

	// critical 6h halved for sanitation, anchored at creation not now.
	want := g.CreatedAt.Add(3 * time.Hour)
	if !updated.SLADeadline.Equal(want) {
		t.Fatalf("expected deadline %v, got %v", want, updated.SLADeadline)
	}
	if len(timeline.entries) != 1 || timeline.entries[0].eventType != grievance.EventReclassified {
		t.Fatalf("expected RECLASSIFIED timeline event, got %+v", timeline.entries)
	}
	if len(outbox.entries) != 1 || outbox.entries[0].topic != grievance.TopicReclassified {
		t.Fatalf("expected %s outbox entry, got %+v", grievance.TopicReclassified, outbox.entries)
	}
}

func TestReclassify_RejectsUnknownValues(t *testing.T) {
	repo := newFakeRepo(openGrievance("g-1"))
	svc, _, _, _ := newTestService(repo)

	if _, err := svc.Reclassify(context.Background(), ReclassifyParams{
		GrievanceID: "g-1",
		Category:    "plumbing",
		Priority:    grievance.PriorityHigh,
	}); err == nil {
		t.Fatal("expected error for unknown category")
	}

	if _, err := svc.Reclassify(context.Background(), ReclassifyParams{
		GrievanceID: "g-1",
		Category:    grievance.CategoryRoad,
		Priority:    "urgent",
	}); err == nil {
		t.Fatal("expected error for unknown priority")
	}
}
