package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_unique_complaint_number",
			SQL: `SELECT complaint_number, COUNT(*) FROM complaints
                  GROUP BY complaint_number HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_one_call_per_complaint",
			SQL: `SELECT complaint_id, COUNT(*) FROM calls
                  GROUP BY complaint_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O3_one_complaint_per_call",
			SQL: `SELECT external_call_id, COUNT(*) FROM calls
                  GROUP BY external_call_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O4_resolved_has_timestamp",
			SQL: `SELECT id, status FROM complaints
                  WHERE status = 'resolved' AND resolved_at IS NULL`,
		},
		{
			Name: "O5_unresolved_has_no_timestamp",
			SQL: `SELECT id, status FROM complaints
                  WHERE status <> 'resolved' AND resolved_at IS NOT NULL`,
		},
		{
			Name: "O6_no_orphan_timeline",
			SQL: `SELECT e.id FROM timeline_events e
                  LEFT JOIN complaints c ON c.id = e.complaint_id
                  WHERE c.id IS NULL`,
		},
		{
			Name: "O7_outbox_not_stuck",
			SQL: `SELECT id, topic FROM outbox
                  WHERE status = 'pending' AND now() - created_at > interval '5 minutes'`,
		},
		{
			Name: "O8_deadline_after_creation",
			SQL: `SELECT id FROM complaints
                  WHERE sla_deadline <= created_at`,
		},
		{
			Name: "O9_known_statuses_only",
			SQL: `SELECT id, status FROM complaints
                  WHERE status NOT IN ('open', 'in-progress', 'resolved', 'escalated')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
