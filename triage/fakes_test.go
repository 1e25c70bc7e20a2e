package triage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sahayak/grievance"
)

type fakeRepo struct {
	byID map[string]grievance.Grievance

	updateErr  error
	getErr     error
	overdue    []grievance.Grievance
	overdueErr error

	updateCalls int
}

func newFakeRepo(gs ...grievance.Grievance) *fakeRepo {
	f := &fakeRepo{byID: make(map[string]grievance.Grievance)}
	for _, g := range gs {
		f.byID[g.ID] = g
	}
	return f
}

func (f *fakeRepo) Create(ctx context.Context, tx pgx.Tx, g grievance.Grievance) (grievance.Grievance, error) {
	f.byID[g.ID] = g
	return g, nil
}

func (f *fakeRepo) Get(ctx context.Context, id string) (grievance.Grievance, error) {
	if f.getErr != nil {
		return grievance.Grievance{}, f.getErr
	}
	g, ok := f.byID[id]
	if !ok {
		return grievance.Grievance{}, grievance.ErrNotFound
	}
	return g, nil
}

func (f *fakeRepo) List(ctx context.Context, filters grievance.Filters) ([]grievance.Grievance, error) {
	out := []grievance.Grievance{}
	for _, g := range f.byID {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatusIf(ctx context.Context, tx pgx.Tx, id string, expected, next grievance.Status, assignedTo *string, resolvedAt *time.Time) (grievance.Grievance, error) {
	f.updateCalls++
	if f.updateErr != nil {
		return grievance.Grievance{}, f.updateErr
	}
	g, ok := f.byID[id]
	if !ok {
		return grievance.Grievance{}, grievance.ErrNotFound
	}
	if g.Status != expected {
		return grievance.Grievance{}, grievance.ErrStatusChanged
	}
	g.Status = next
	if assignedTo != nil {
		g.AssignedTo = assignedTo
	}
	if resolvedAt != nil {
		g.ResolvedAt = resolvedAt
	}
	f.byID[id] = g
	return g, nil
}

func (f *fakeRepo) UpdateClassification(ctx context.Context, tx pgx.Tx, id string, category grievance.Category, priority grievance.Priority, deadline time.Time) (grievance.Grievance, error) {
	g, ok := f.byID[id]
	if !ok {
		return grievance.Grievance{}, grievance.ErrNotFound
	}
	g.Category = category
	g.Priority = priority
	g.SLADeadline = deadline
	f.byID[id] = g
	return g, nil
}

func (f *fakeRepo) ListOverdue(ctx context.Context, now time.Time, limit int) ([]grievance.Grievance, error) {
	if f.overdueErr != nil {
		return nil, f.overdueErr
	}
	return f.overdue, nil
}

func (f *fakeRepo) CreateCallRecord(ctx context.Context, tx pgx.Tx, rec grievance.CallRecord) (grievance.CallRecord, error) {
	return rec, nil
}

func (f *fakeRepo) GetCallRecord(ctx context.Context, grievanceID string) (grievance.CallRecord, error) {
	return grievance.CallRecord{}, grievance.ErrCallRecordNotFound
}

func (f *fakeRepo) GetByExternalCallID(ctx context.Context, callID string) (grievance.Grievance, error) {
	return grievance.Grievance{}, grievance.ErrNotFound
}

type timelineEntry struct {
	grievanceID string
	eventType   string
	payload     map[string]any
}

type fakeTimeline struct {
	appendErr error
	entries   []timelineEntry
}

func (f *fakeTimeline) Append(ctx context.Context, tx pgx.Tx, grievanceID, eventType string, actorID *string, payload map[string]any) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, timelineEntry{grievanceID: grievanceID, eventType: eventType, payload: payload})
	return nil
}

type outboxEntry struct {
	topic   string
	payload map[string]any
}

type fakeOutbox struct {
	enqueueErr error
	entries    []outboxEntry
}

func (f *fakeOutbox) Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.entries = append(f.entries, outboxEntry{topic: topic, payload: payload})
	return nil
}

type fakePool struct {
	tx *fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
