package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sahayak/grievance"
)

var (
	// ErrInvalidTransition is returned for edges the state machine forbids.
	ErrInvalidTransition = errors.New("triage: invalid status transition")
	// ErrAssigneeRequired signals open -> in-progress without an assignee.
	ErrAssigneeRequired = errors.New("triage: assignee required for in-progress")
	// ErrConflict signals the record changed since the caller last read it.
	// The caller must re-fetch and retry; the engine never retries itself.
	ErrConflict = errors.New("triage: concurrent transition conflict")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TimelineWriter appends lifecycle events inside the caller's transaction.
type TimelineWriter interface {
	Append(ctx context.Context, tx pgx.Tx, grievanceID, eventType string, actorID *string, payload map[string]any) error
}

// OutboxWriter enqueues realtime notifications inside the caller's transaction.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
}

// Service owns the grievance status state machine and derived-field
// computation. All lifecycle writes go through it.
type Service struct {
	pool     TxBeginner
	repo     grievance.Repository
	timeline TimelineWriter
	outbox   OutboxWriter
	windows  Windows
	now      func() time.Time
}

func NewService(pool TxBeginner, repo grievance.Repository, timeline TimelineWriter, outbox OutboxWriter, windows Windows) *Service {
	if timeline == nil {
		timeline = grievance.NewTimelineStore()
	}
	if outbox == nil {
		outbox = grievance.NewOutboxStore()
	}
	return &Service{
		pool:     pool,
		repo:     repo,
		timeline: timeline,
		outbox:   outbox,
		windows:  windows,
		now:      time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Windows exposes the effective SLA table so intake can compute deadlines
// with the same configuration.
func (s *Service) Windows() Windows {
	return s.windows
}

// TransitionParams describes a requested status change. Expected carries the
// status the caller last observed; when empty the current stored status is
// used. A stale Expected yields ErrConflict.
type TransitionParams struct {
	GrievanceID string
	Expected    grievance.Status
	Next        grievance.Status
	AssignedTo  *string
	ActorID     *string
}

// Transition validates and applies a status change, appending the timeline
// event and realtime notification in the same transaction as the write.
func (s *Service) Transition(ctx context.Context, params TransitionParams) (grievance.Grievance, error) {
	return s.transition(ctx, params, grievance.EventStatusChanged, grievance.TopicStatusChanged)
}

// Escalate moves a grievance into escalated, either from the SLA sweep or by
// operator action. Escalating an already escalated or resolved grievance is
// reported as already-satisfied.
func (s *Service) Escalate(ctx context.Context, grievanceID string, actorID *string) (grievance.Grievance, error) {
	current, err := s.repo.Get(ctx, grievanceID)
	if err != nil {
		return grievance.Grievance{}, err
	}
	if current.Status == grievance.StatusEscalated || current.Status == grievance.StatusResolved {
		return current, nil
	}

	params := TransitionParams{
		GrievanceID: grievanceID,
		Expected:    current.Status,
		Next:        grievance.StatusEscalated,
		ActorID:     actorID,
	}
	return s.transition(ctx, params, grievance.EventEscalated, grievance.TopicEscalated)
}

func (s *Service) transition(ctx context.Context, params TransitionParams, eventType, topic string) (grievance.Grievance, error) {
	if params.GrievanceID == "" {
		return grievance.Grievance{}, fmt.Errorf("triage: missing grievance id")
	}
	if !grievance.ValidStatus(params.Next) {
		return grievance.Grievance{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, params.Next)
	}

	expected := params.Expected
	if expected == "" {
		current, err := s.repo.Get(ctx, params.GrievanceID)
		if err != nil {
			return grievance.Grievance{}, err
		}
		expected = current.Status
	}

	if expected == grievance.StatusResolved {
		current, err := s.repo.Get(ctx, params.GrievanceID)
		if err != nil {
			return grievance.Grievance{}, err
		}
		if current.Status != grievance.StatusResolved {
			// The caller's read is stale: the record moved on since
			// they saw it resolved.
			return grievance.Grievance{}, ErrConflict
		}
		if params.Next == grievance.StatusResolved {
			// Idempotent resolve: report already-satisfied without
			// touching resolved_at.
			return current, nil
		}
		return grievance.Grievance{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, expected, params.Next)
	}
	if !CanTransition(expected, params.Next) {
		return grievance.Grievance{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, expected, params.Next)
	}
	if expected == grievance.StatusOpen && params.Next == grievance.StatusInProgress {
		if params.AssignedTo == nil || *params.AssignedTo == "" {
			return grievance.Grievance{}, ErrAssigneeRequired
		}
	}

	var resolvedAt *time.Time
	if params.Next == grievance.StatusResolved {
		t := s.now().UTC()
		resolvedAt = &t
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return grievance.Grievance{}, fmt.Errorf("triage: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updated, err := s.repo.UpdateStatusIf(ctx, tx, params.GrievanceID, expected, params.Next, params.AssignedTo, resolvedAt)
	if err != nil {
		if errors.Is(err, grievance.ErrStatusChanged) {
			return grievance.Grievance{}, ErrConflict
		}
		return grievance.Grievance{}, err
	}

	payload := map[string]any{
		"previous_status": string(expected),
		"next_status":     string(params.Next),
	}
	if params.AssignedTo != nil {
		payload["assigned_to"] = *params.AssignedTo
	}
	if err := s.timeline.Append(ctx, tx, updated.ID, eventType, params.ActorID, payload); err != nil {
		return grievance.Grievance{}, err
	}

	outboxPayload := map[string]any{
		"grievance_id":     updated.ID,
		"complaint_number": updated.ComplaintNumber,
		"previous":         string(expected),
		"next":             string(params.Next),
		"zone":             updated.Zone,
	}
	if err := s.outbox.Enqueue(ctx, tx, topic, outboxPayload); err != nil {
		return grievance.Grievance{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return grievance.Grievance{}, fmt.Errorf("triage: commit transition: %w", err)
	}
	return updated, nil
}

// ReclassifyParams carries an explicit reclassification request.
type ReclassifyParams struct {
	GrievanceID string
	Category    grievance.Category
	Priority    grievance.Priority
	ActorID     *string
}

// Reclassify rewrites category and priority and recomputes the SLA deadline
// from the original creation time. This is the only path that touches
// sla_deadline after creation.
func (s *Service) Reclassify(ctx context.Context, params ReclassifyParams) (grievance.Grievance, error) {
	if params.GrievanceID == "" {
		return grievance.Grievance{}, fmt.Errorf("triage: missing grievance id")
	}
	if !grievance.ValidCategory(params.Category) {
		return grievance.Grievance{}, fmt.Errorf("triage: invalid category %q", params.Category)
	}
	if !grievance.ValidPriority(params.Priority) {
		return grievance.Grievance{}, fmt.Errorf("triage: invalid priority %q", params.Priority)
	}

	current, err := s.repo.Get(ctx, params.GrievanceID)
	if err != nil {
		return grievance.Grievance{}, err
	}

	deadline := s.windows.DeadlineFor(current.CreatedAt, params.Category, params.Priority)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return grievance.Grievance{}, fmt.Errorf("triage: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updated, err := s.repo.UpdateClassification(ctx, tx, params.GrievanceID, params.Category, params.Priority, deadline)
	if err != nil {
		return grievance.Grievance{}, err
	}

	payload := map[string]any{
		"previous_category": string(current.Category),
		"previous_priority": string(current.Priority),
		"category":          string(params.Category),
		"priority":          string(params.Priority),
	}
	if err := s.timeline.Append(ctx, tx, updated.ID, grievance.EventReclassified, params.ActorID, payload); err != nil {
		return grievance.Grievance{}, err
	}

	outboxPayload := map[string]any{
		"grievance_id":     updated.ID,
		"complaint_number": updated.ComplaintNumber,
		"category":         string(params.Category),
		"priority":         string(params.Priority),
		"zone":             updated.Zone,
	}
	if err := s.outbox.Enqueue(ctx, tx, grievance.TopicReclassified, outboxPayload); err != nil {
		return grievance.Grievance{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return grievance.Grievance{}, fmt.Errorf("triage: commit reclassify: %w", err)
	}
	return updated, nil
}
