package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var zones = []string{"rohini", "narela", "city", "west", "shahdara-north"}

var categories = []string{"garbage", "water", "sewage", "road", "streetlight"}

// Intaker files web complaints as fast as the database allows. Every insert
// draws a fresh complaint number from the sequence.
func Intaker(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO complaints (complaint_number, channel, category, zone, description, priority, status, sla_deadline)
			VALUES (next_complaint_number(), 'web', $1, $2, $3, 'medium', 'open', NOW() + interval '48 hours')`,
			categories[rand.Intn(len(categories))],
			zones[rand.Intn(len(zones))],
			fmt.Sprintf("stress complaint %d", rand.Int63()),
		)
		if err != nil {
			return fmt.Errorf("intaker insert: %w", err)
		}
		time.Sleep(time.Duration(5+rand.Intn(15)) * time.Millisecond)
	}
}

// VoiceWebhook replays the same call-completion event from several
// goroutines. The idempotency key must collapse the retries to one complaint
// and one call record.
func VoiceWebhook(ctx context.Context, pool *pgxpool.Pool, callID string, stop <-chan struct{}) error {
	key := "voice:" + callID
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO idempotency (key) VALUES ($1)`, key)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				// replay, nothing to write
				_ = tx.Rollback(ctx)
				time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
				continue
			}
			_ = tx.Rollback(ctx)
			return fmt.Errorf("voice reserve: %w", err)
		}
		var complaintID string
		err = tx.QueryRow(ctx, `
			INSERT INTO complaints (complaint_number, channel, category, description, priority, status, sla_deadline)
			VALUES (next_complaint_number(), 'voice', 'garbage', 'voice stress complaint', 'medium', 'open', NOW() + interval '24 hours')
			RETURNING id`).Scan(&complaintID)
		if err == nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO calls (complaint_id, external_call_id, duration_seconds, transcript)
				VALUES ($1, $2, 42, 'stress transcript')`, complaintID, callID)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("voice insert: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("voice commit: %w", err)
		}
	}
}

// Transitioner races complaints along the lifecycle with conditional
// updates. Losing the race is expected; silently overwriting is not.
func Transitioner(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	edges := []struct{ from, to string }{
		{"open", "in-progress"},
		{"in-progress", "resolved"},
		{"open", "escalated"},
		{"escalated", "resolved"},
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		edge := edges[rand.Intn(len(edges))]
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var id string
		err = tx.QueryRow(ctx, `SELECT id FROM complaints WHERE status=$1 ORDER BY random() LIMIT 1`, edge.from).Scan(&id)
		if err == nil {
			resolvedAt := "NULL"
			if edge.to == "resolved" {
				resolvedAt = "NOW()"
			}
			tag, execErr := tx.Exec(ctx, fmt.Sprintf(`
				UPDATE complaints
				SET status=$1, assigned_to=COALESCE(assigned_to, 'stress-team'), resolved_at=%s, updated_at=NOW()
				WHERE id=$2 AND status=$3`, resolvedAt), edge.to, id, edge.from)
			if execErr == nil && tag.RowsAffected() == 1 {
				_, _ = tx.Exec(ctx, `
					INSERT INTO timeline_events (complaint_id, type, payload)
					VALUES ($1, 'STATUS_CHANGED', jsonb_build_object('previous_status', $2::text, 'next_status', $3::text))`,
					id, edge.from, edge.to)
				_, _ = tx.Exec(ctx, `
					INSERT INTO outbox (topic, payload)
					VALUES ('grievance.status_changed', jsonb_build_object('grievance_id', $1::text, 'previous', $2::text, 'next', $3::text))`,
					id, edge.from, edge.to)
				_ = tx.Commit(ctx)
				time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
				continue
			}
		}
		_ = tx.Rollback(ctx)
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

// Dispatcher drains pending outbox rows with SKIP LOCKED, mimicking the
// realtime dispatcher loop.
func Dispatcher(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `SELECT id FROM outbox WHERE status='pending' ORDER BY id LIMIT 20 FOR UPDATE SKIP LOCKED`)
		if err != nil {
			_ = tx.Rollback(ctx)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		ids := make([]int64, 0, 20)
		for rows.Next() {
			var id int64
			_ = rows.Scan(&id)
			ids = append(ids, id)
		}
		rows.Close()
		if len(ids) > 0 {
			_, _ = tx.Exec(ctx, `UPDATE outbox SET status='sent', attempts=attempts+1 WHERE id = ANY($1)`, ids)
		}
		_ = tx.Commit(ctx)
		time.Sleep(100 * time.Millisecond)
	}
}

// Sweeper escalates overdue complaints, competing with Transitioner for the
// same rows.
func Sweeper(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, _ = pool.Exec(ctx, `
			UPDATE complaints
			SET status='escalated', updated_at=NOW()
			WHERE sla_deadline < NOW() AND status IN ('open', 'in-progress')`)
		time.Sleep(time.Duration(200+rand.Intn(200)) * time.Millisecond)
	}
}
