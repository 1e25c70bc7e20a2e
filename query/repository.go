package query

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sahayak/grievance"
)

// Repository serves the dashboard aggregate reads.
type Repository interface {
	Counts(ctx context.Context, zone string) (total, open int, err error)
	CreatedBetween(ctx context.Context, zone string, from, to time.Time) (int, error)
	ResolvedBetween(ctx context.Context, zone string, from, to time.Time) (int, error)
	AvgResolutionHours(ctx context.Context, zone string) (float64, error)
	RecentActivity(ctx context.Context, zone string, limit int) ([]ActivityEvent, error)
	Overdue(ctx context.Context, zone string, now time.Time) ([]grievance.Grievance, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// zoneFilter appends a zone predicate unless the sentinel "all" (or empty)
// was supplied.
func zoneFilter(where string, args []any, zone string) (string, []any) {
	if zone == "" || zone == grievance.ZoneAll {
		return where, args
	}
	return fmt.Sprintf("%s AND zone=$%d", where, len(args)+1), append(args, zone)
}

func (r *PGRepository) Counts(ctx context.Context, zone string) (int, int, error) {
	where, args := zoneFilter("1=1", nil, zone)
	query := fmt.Sprintf(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status NOT IN ('resolved'))
		FROM complaints WHERE %s`, where)

	var total, open int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total, &open); err != nil {
		return 0, 0, fmt.Errorf("query: counts: %w", err)
	}
	return total, open, nil
}

func (r *PGRepository) CreatedBetween(ctx context.Context, zone string, from, to time.Time) (int, error) {
	where, args := zoneFilter("created_at >= $1 AND created_at < $2", []any{from, to}, zone)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM complaints WHERE %s`, where)

	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("query: created between: %w", err)
	}
	return n, nil
}

func (r *PGRepository) ResolvedBetween(ctx context.Context, zone string, from, to time.Time) (int, error) {
	where, args := zoneFilter("resolved_at >= $1 AND resolved_at < $2", []any{from, to}, zone)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM complaints WHERE %s`, where)

	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("query: resolved between: %w", err)
	}
	return n, nil
}

func (r *PGRepository) AvgResolutionHours(ctx context.Context, zone string) (float64, error) {
	where, args := zoneFilter("resolved_at IS NOT NULL", nil, zone)
	query := fmt.Sprintf(`
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM resolved_at - created_at)) / 3600, 0)
		FROM complaints WHERE %s`, where)

	var hours float64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&hours); err != nil {
		return 0, fmt.Errorf("query: avg resolution: %w", err)
	}
	return hours, nil
}

func (r *PGRepository) RecentActivity(ctx context.Context, zone string, limit int) ([]ActivityEvent, error) {
	if limit <= 0 || limit > grievance.MaxListRows {
		limit = 20
	}
	where, args := zoneFilter("1=1", nil, zone)
	query := fmt.Sprintf(`
		SELECT e.complaint_id, c.complaint_number, e.type, c.category, COALESCE(c.zone, ''), e.created_at
		FROM timeline_events e
		JOIN complaints c ON c.id = e.complaint_id
		WHERE %s
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT %d`, where, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: recent activity: %w", err)
	}
	defer rows.Close()

	events := []ActivityEvent{}
	for rows.Next() {
		var ev ActivityEvent
		if err := rows.Scan(&ev.GrievanceID, &ev.ComplaintNumber, &ev.Type, &ev.Category, &ev.Zone, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("query: scan activity: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: iterate activity: %w", err)
	}
	return events, nil
}

func (r *PGRepository) Overdue(ctx context.Context, zone string, now time.Time) ([]grievance.Grievance, error) {
	where, args := zoneFilter("sla_deadline < $1 AND status NOT IN ('resolved')", []any{now}, zone)
	query := fmt.Sprintf(`
		SELECT id, complaint_number, channel, category, zone, location, latitude, longitude,
		       title, description, ai_summary, sentiment, priority, status, assigned_to,
		       citizen_name, citizen_phone, sla_deadline, created_at, resolved_at
		FROM complaints
		WHERE %s
		ORDER BY sla_deadline ASC
		LIMIT %d`, where, grievance.MaxListRows)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: overdue: %w", err)
	}
	defer rows.Close()

	list := []grievance.Grievance{}
	for rows.Next() {
		var (
			g    grievance.Grievance
			zone *string
		)
		err := rows.Scan(
			&g.ID, &g.ComplaintNumber, &g.Channel, &g.Category, &zone, &g.Location,
			&g.Latitude, &g.Longitude, &g.Title, &g.Description, &g.AISummary,
			&g.Sentiment, &g.Priority, &g.Status, &g.AssignedTo,
			&g.CitizenName, &g.CitizenPhone, &g.SLADeadline, &g.CreatedAt, &g.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("query: scan overdue: %w", err)
		}
		if zone != nil {
			g.Zone = *zone
		}
		list = append(list, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: iterate overdue: %w", err)
	}
	return list, nil
}
