package broadcast

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository serves the broadcast history reads.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// History lists past alerts, newest first.
func (r *Repository) History(ctx context.Context, limit int) ([]Alert, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	const query = `
		SELECT id, title, message, channel, priority, COALESCE(zone, ''), status, sent_at, created_at
		FROM broadcasts
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("broadcast: history: %w", err)
	}
	defer rows.Close()

	alerts := []Alert{}
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Title, &a.Message, &a.Channel, &a.Priority, &a.Zone, &a.Status, &a.SentAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("broadcast: scan history: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("broadcast: iterate history: %w", err)
	}
	return alerts, nil
}
