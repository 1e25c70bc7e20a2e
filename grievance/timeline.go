package grievance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateIdempotencyKey signals the idempotency insert hit an existing
// key, i.e. this external event was already processed.
var ErrDuplicateIdempotencyKey = errors.New("grievance: duplicate idempotency key")

// TimelineStore appends lifecycle events. Appends always run inside the same
// transaction as the write they describe.
type TimelineStore struct{}

func NewTimelineStore() *TimelineStore {
	return &TimelineStore{}
}

func (s *TimelineStore) Append(ctx context.Context, tx pgx.Tx, grievanceID, eventType string, actorID *string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["grievance_id"] = grievanceID

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("grievance: marshal timeline payload: %w", err)
	}

	var actor any
	if actorID != nil {
		actor = *actorID
	}

	const insertSQL = `
INSERT INTO timeline_events (complaint_id, type, payload, actor_id)
VALUES ($1, $2, $3, $4);
`
	if _, err := tx.Exec(ctx, insertSQL, grievanceID, eventType, payloadBytes, actor); err != nil {
		return fmt.Errorf("grievance: insert timeline event: %w", err)
	}
	return nil
}

// OutboxStore enqueues change notifications for the realtime dispatcher.
// Writing the outbox row in the committing transaction guarantees an event is
// published for every durable change and never for a rolled-back one.
type OutboxStore struct{}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{}
}

func (s *OutboxStore) Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	if topic == "" {
		return fmt.Errorf("grievance: empty outbox topic")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("grievance: marshal outbox payload: %w", err)
	}

	const insertSQL = `
INSERT INTO outbox (topic, payload)
VALUES ($1, $2);
`
	if _, err := tx.Exec(ctx, insertSQL, topic, payloadBytes); err != nil {
		return fmt.Errorf("grievance: insert outbox message: %w", err)
	}
	return nil
}

// IdempotencyStore reserves external event identifiers so webhook retries
// produce exactly one grievance.
type IdempotencyStore struct{}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{}
}

// Reserve attempts to claim the key inside the active transaction.
func (s *IdempotencyStore) Reserve(ctx context.Context, tx pgx.Tx, key string) error {
	if key == "" {
		return fmt.Errorf("grievance: empty idempotency key")
	}

	if _, err := tx.Exec(ctx, `INSERT INTO idempotency (key) VALUES ($1)`, key); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("grievance: insert idempotency key: %w", err)
	}
	return nil
}
