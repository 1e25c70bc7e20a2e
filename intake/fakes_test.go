package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sahayak/classify"
	"sahayak/grievance"
)

type fakeRepo struct {
	created     []grievance.Grievance
	calls       []grievance.CallRecord
	createErr   error
	nextNumbers int
}

func (f *fakeRepo) Create(ctx context.Context, tx pgx.Tx, g grievance.Grievance) (grievance.Grievance, error) {
	if f.createErr != nil {
		return grievance.Grievance{}, f.createErr
	}
	f.nextNumbers++
	g.ComplaintNumber = fmt.Sprintf("MCD-2026-%06d", f.nextNumbers)
	g.CreatedAt = time.Now().UTC()
	f.created = append(f.created, g)
	return g, nil
}

func (f *fakeRepo) Get(ctx context.Context, id string) (grievance.Grievance, error) {
	for _, g := range f.created {
		if g.ID == id {
			return g, nil
		}
	}
	return grievance.Grievance{}, grievance.ErrNotFound
}

func (f *fakeRepo) List(ctx context.Context, filters grievance.Filters) ([]grievance.Grievance, error) {
	return f.created, nil
}

func (f *fakeRepo) UpdateStatusIf(ctx context.Context, tx pgx.Tx, id string, expected, next grievance.Status, assignedTo *string, resolvedAt *time.Time) (grievance.Grievance, error) {
	panic("not implemented")
}

func (f *fakeRepo) UpdateClassification(ctx context.Context, tx pgx.Tx, id string, category grievance.Category, priority grievance.Priority, deadline time.Time) (grievance.Grievance, error) {
	panic("not implemented")
}

func (f *fakeRepo) ListOverdue(ctx context.Context, now time.Time, limit int) ([]grievance.Grievance, error) {
	return nil, nil
}

func (f *fakeRepo) CreateCallRecord(ctx context.Context, tx pgx.Tx, rec grievance.CallRecord) (grievance.CallRecord, error) {
	f.calls = append(f.calls, rec)
	return rec, nil
}

func (f *fakeRepo) GetCallRecord(ctx context.Context, grievanceID string) (grievance.CallRecord, error) {
	for _, rec := range f.calls {
		if rec.GrievanceID == grievanceID {
			return rec, nil
		}
	}
	return grievance.CallRecord{}, grievance.ErrCallRecordNotFound
}

func (f *fakeRepo) GetByExternalCallID(ctx context.Context, callID string) (grievance.Grievance, error) {
	for _, rec := range f.calls {
		if rec.ExternalCallID == callID {
			return f.Get(ctx, rec.GrievanceID)
		}
	}
	return grievance.Grievance{}, grievance.ErrNotFound
}

type fakeIdem struct {
	reserved map[string]bool
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{reserved: make(map[string]bool)}
}

func (f *fakeIdem) Reserve(ctx context.Context, tx pgx.Tx, key string) error {
	if f.reserved[key] {
		return grievance.ErrDuplicateIdempotencyKey
	}
	f.reserved[key] = true
	return nil
}

type fakeTimeline struct {
	events []string
}

func (f *fakeTimeline) Append(ctx context.Context, tx pgx.Tx, grievanceID, eventType string, actorID *string, payload map[string]any) error {
	f.events = append(f.events, eventType)
	return nil
}

type fakeOutbox struct {
	topics []string
}

func (f *fakeOutbox) Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	f.topics = append(f.topics, topic)
	return nil
}

type fakeClassifier struct {
	result classify.Result
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (classify.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakePool struct {
	txs []*fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	tx := &fakeTx{}
	f.txs = append(f.txs, tx)
	return tx, nil
}

func (f *fakePool) last() *fakeTx {
	if len(f.txs) == 0 {
		return nil
	}
	return f.txs[len(f.txs)-1]
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
