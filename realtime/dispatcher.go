package realtime

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sahayak/broadcast"
	"sahayak/grievance"
)

// Dispatcher drains the transactional outbox and publishes each message to
// the bus exactly once per drain. A single dispatcher goroutine reads rows in
// id order, which preserves per-record commit order; cross-record ordering is
// not guaranteed and not promised.
type Dispatcher struct {
	pool     *pgxpool.Pool
	bus      *Bus
	interval time.Duration
	batch    int
}

func NewDispatcher(pool *pgxpool.Pool, bus *Bus, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Dispatcher{
		pool:     pool,
		bus:      bus,
		interval: interval,
		batch:    200,
	}
}

// Run blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				log.Printf("realtime dispatch: %v", err)
			}
		}
	}
}

// DispatchOnce publishes pending outbox rows and marks them sent. Publishing
// happens before the mark commits, so a crash between the two replays the
// batch: at-least-once delivery.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("realtime: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, topic, payload FROM outbox
		WHERE status = 'pending'
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, d.batch)
	if err != nil {
		return 0, fmt.Errorf("realtime: select pending: %w", err)
	}

	type pending struct {
		id      int64
		topic   string
		payload []byte
	}
	var batch []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.topic, &p.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("realtime: scan outbox: %w", err)
		}
		batch = append(batch, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("realtime: iterate outbox: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(batch))
	for _, p := range batch {
		d.bus.Publish(eventFor(p.topic, p.payload))
		ids = append(ids, p.id)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE outbox SET status = 'sent', attempts = attempts + 1
		WHERE id = ANY($1)
	`, ids); err != nil {
		return 0, fmt.Errorf("realtime: mark sent: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("realtime: commit dispatch: %w", err)
	}
	return len(batch), nil
}

// eventFor maps an outbox topic onto the subscription contract's
// {eventType, table, record} shape.
func eventFor(topic string, payload []byte) Event {
	ev := Event{Topic: topic, Record: payload}
	switch topic {
	case grievance.TopicCreated:
		ev.Type, ev.Table = EventInsert, "complaints"
	case grievance.TopicStatusChanged, grievance.TopicEscalated, grievance.TopicReclassified:
		ev.Type, ev.Table = EventUpdate, "complaints"
	case grievance.TopicCallRecorded:
		ev.Type, ev.Table = EventInsert, "calls"
	case broadcast.TopicSent:
		ev.Type, ev.Table = EventInsert, "broadcasts"
	default:
		ev.Type, ev.Table = EventInsert, "outbox"
	}
	return ev
}
