package grievance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no grievance row exists for the id.
	ErrNotFound = errors.New("grievance: not found")
	// ErrCallRecordNotFound is returned when a grievance has no linked call.
	ErrCallRecordNotFound = errors.New("grievance: call record not found")
	// ErrDuplicateCall signals the external call id was already ingested.
	ErrDuplicateCall = errors.New("grievance: duplicate call id")
	// ErrStatusChanged signals a conditional status write matched no row
	// because the record moved on since the caller read it.
	ErrStatusChanged = errors.New("grievance: status changed concurrently")
)

// Filters narrow the List query. Zero values mean no constraint; Zone accepts
// the "all" sentinel as equivalent to empty.
type Filters struct {
	Zone     string
	Category Category
	Status   Status
	Search   string
	Limit    int
}

// MaxListRows caps every list response.
const MaxListRows = 100

// Repository defines the data access the grievance services require.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, g Grievance) (Grievance, error)
	Get(ctx context.Context, id string) (Grievance, error)
	List(ctx context.Context, filters Filters) ([]Grievance, error)
	UpdateStatusIf(ctx context.Context, tx pgx.Tx, id string, expected, next Status, assignedTo *string, resolvedAt *time.Time) (Grievance, error)
	UpdateClassification(ctx context.Context, tx pgx.Tx, id string, category Category, priority Priority, deadline time.Time) (Grievance, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]Grievance, error)
	CreateCallRecord(ctx context.Context, tx pgx.Tx, rec CallRecord) (CallRecord, error)
	GetCallRecord(ctx context.Context, grievanceID string) (CallRecord, error)
	GetByExternalCallID(ctx context.Context, callID string) (Grievance, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const grievanceColumns = `id, complaint_number, channel, category, zone, location, latitude, longitude,
	title, description, ai_summary, sentiment, priority, status, assigned_to,
	citizen_name, citizen_phone, sla_deadline, created_at, resolved_at`

// Create inserts the grievance inside the caller's transaction. The complaint
// number defaults to the database sequence so uniqueness holds under
// concurrent intake without a check-then-write race.
func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, g Grievance) (Grievance, error) {
	const query = `
        INSERT INTO complaints (id, complaint_number, channel, category, zone, location, latitude, longitude,
            title, description, ai_summary, sentiment, priority, status,
            citizen_name, citizen_phone, sla_deadline)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()),
                COALESCE(NULLIF($2, ''), next_complaint_number()),
                $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        RETURNING ` + grievanceColumns

	row := tx.QueryRow(ctx, query,
		g.ID,
		g.ComplaintNumber,
		g.Channel,
		g.Category,
		nullableString(g.Zone),
		g.Location,
		g.Latitude,
		g.Longitude,
		g.Title,
		g.Description,
		g.AISummary,
		g.Sentiment,
		g.Priority,
		g.Status,
		g.CitizenName,
		g.CitizenPhone,
		g.SLADeadline,
	)

	created, err := scanGrievance(row)
	if err != nil {
		return Grievance{}, fmt.Errorf("grievance: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM complaints WHERE id = $1`

	g, err := scanGrievance(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grievance{}, ErrNotFound
		}
		return Grievance{}, fmt.Errorf("grievance: get: %w", err)
	}
	return g, nil
}

func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Grievance, error) {
	where := []string{"1=1"}
	args := []any{}

	if filters.Zone != "" && filters.Zone != ZoneAll {
		where = append(where, fmt.Sprintf("zone=$%d", len(args)+1))
		args = append(args, filters.Zone)
	}
	if filters.Category != "" {
		where = append(where, fmt.Sprintf("category=$%d", len(args)+1))
		args = append(args, filters.Category)
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status=$%d", len(args)+1))
		args = append(args, filters.Status)
	}
	if s := strings.TrimSpace(filters.Search); s != "" {
		n := len(args) + 1
		where = append(where, fmt.Sprintf("(description ILIKE $%d OR location ILIKE $%d OR complaint_number ILIKE $%d)", n, n, n))
		args = append(args, "%"+s+"%")
	}

	limit := filters.Limit
	if limit <= 0 || limit > MaxListRows {
		limit = MaxListRows
	}

	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE %s ORDER BY created_at DESC LIMIT %d`,
		grievanceColumns, strings.Join(where, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("grievance: list: %w", err)
	}
	defer rows.Close()

	list := []Grievance{}
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, fmt.Errorf("grievance: scan list: %w", err)
		}
		list = append(list, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grievance: iterate list: %w", err)
	}
	return list, nil
}

// UpdateStatusIf applies the transition only when the row is still in the
// expected state. ErrStatusChanged means the record moved on since the caller
// read it; the caller must re-fetch and retry.
func (r *PGRepository) UpdateStatusIf(ctx context.Context, tx pgx.Tx, id string, expected, next Status, assignedTo *string, resolvedAt *time.Time) (Grievance, error) {
	query := `
		UPDATE complaints
		SET status = $3,
		    assigned_to = COALESCE($4, assigned_to),
		    resolved_at = COALESCE($5, resolved_at)
		WHERE id = $1 AND status = $2
		RETURNING ` + grievanceColumns

	g, err := scanGrievance(tx.QueryRow(ctx, query, id, expected, next, assignedTo, resolvedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if probeErr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM complaints WHERE id=$1)`, id).Scan(&exists); probeErr != nil {
				return Grievance{}, fmt.Errorf("grievance: probe after failed transition: %w", probeErr)
			}
			if !exists {
				return Grievance{}, ErrNotFound
			}
			return Grievance{}, ErrStatusChanged
		}
		return Grievance{}, fmt.Errorf("grievance: update status: %w", err)
	}
	return g, nil
}

// UpdateClassification rewrites category, priority, and the recomputed SLA
// deadline. Used only by explicit reclassification.
func (r *PGRepository) UpdateClassification(ctx context.Context, tx pgx.Tx, id string, category Category, priority Priority, deadline time.Time) (Grievance, error) {
	query := `
		UPDATE complaints
		SET category = $2, priority = $3, sla_deadline = $4
		WHERE id = $1
		RETURNING ` + grievanceColumns

	g, err := scanGrievance(tx.QueryRow(ctx, query, id, category, priority, deadline))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grievance{}, ErrNotFound
		}
		return Grievance{}, fmt.Errorf("grievance: update classification: %w", err)
	}
	return g, nil
}

// ListOverdue returns non-terminal grievances whose SLA deadline has passed,
// oldest deadline first. The sweep escalates them.
func (r *PGRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]Grievance, error) {
	if limit <= 0 {
		limit = MaxListRows
	}
	query := fmt.Sprintf(`SELECT %s FROM complaints
		WHERE sla_deadline < $1 AND status NOT IN ('resolved', 'escalated')
		ORDER BY sla_deadline ASC LIMIT %d`, grievanceColumns, limit)

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("grievance: list overdue: %w", err)
	}
	defer rows.Close()

	list := []Grievance{}
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, fmt.Errorf("grievance: scan overdue: %w", err)
		}
		list = append(list, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grievance: iterate overdue: %w", err)
	}
	return list, nil
}

func (r *PGRepository) CreateCallRecord(ctx context.Context, tx pgx.Tx, rec CallRecord) (CallRecord, error) {
	const query = `
        INSERT INTO calls (id, complaint_id, external_call_id, duration_seconds, transcript, summary, recording_url)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7)
        RETURNING id, complaint_id, external_call_id, duration_seconds, transcript, summary, recording_url, created_at
    `

	row := tx.QueryRow(ctx, query,
		rec.ID,
		rec.GrievanceID,
		rec.ExternalCallID,
		rec.DurationSeconds,
		rec.Transcript,
		rec.Summary,
		rec.RecordingURL,
	)

	var created CallRecord
	err := row.Scan(
		&created.ID,
		&created.GrievanceID,
		&created.ExternalCallID,
		&created.DurationSeconds,
		&created.Transcript,
		&created.Summary,
		&created.RecordingURL,
		&created.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return CallRecord{}, ErrDuplicateCall
		}
		return CallRecord{}, fmt.Errorf("grievance: insert call record: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetCallRecord(ctx context.Context, grievanceID string) (CallRecord, error) {
	const query = `
		SELECT id, complaint_id, external_call_id, duration_seconds, transcript, summary, recording_url, created_at
		FROM calls
		WHERE complaint_id = $1
	`

	var rec CallRecord
	err := r.pool.QueryRow(ctx, query, grievanceID).Scan(
		&rec.ID,
		&rec.GrievanceID,
		&rec.ExternalCallID,
		&rec.DurationSeconds,
		&rec.Transcript,
		&rec.Summary,
		&rec.RecordingURL,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CallRecord{}, ErrCallRecordNotFound
		}
		return CallRecord{}, fmt.Errorf("grievance: get call record: %w", err)
	}
	return rec, nil
}

// GetByExternalCallID resolves the grievance created for a voice call. Used
// to answer webhook retries with the original record.
func (r *PGRepository) GetByExternalCallID(ctx context.Context, callID string) (Grievance, error) {
	query := `SELECT ` + prefixColumns("c") + `
		FROM complaints c
		JOIN calls ON calls.complaint_id = c.id
		WHERE calls.external_call_id = $1`

	g, err := scanGrievance(r.pool.QueryRow(ctx, query, callID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grievance{}, ErrNotFound
		}
		return Grievance{}, fmt.Errorf("grievance: get by call id: %w", err)
	}
	return g, nil
}

func prefixColumns(alias string) string {
	cols := strings.Split(grievanceColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func scanGrievance(row pgx.Row) (Grievance, error) {
	var (
		g    Grievance
		zone *string
	)
	err := row.Scan(
		&g.ID,
		&g.ComplaintNumber,
		&g.Channel,
		&g.Category,
		&zone,
		&g.Location,
		&g.Latitude,
		&g.Longitude,
		&g.Title,
		&g.Description,
		&g.AISummary,
		&g.Sentiment,
		&g.Priority,
		&g.Status,
		&g.AssignedTo,
		&g.CitizenName,
		&g.CitizenPhone,
		&g.SLADeadline,
		&g.CreatedAt,
		&g.ResolvedAt,
	)
	if err != nil {
		return Grievance{}, err
	}
	if zone != nil {
		g.Zone = *zone
	}
	return g, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
