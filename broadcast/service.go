package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"sahayak/grievance"
)

var (
	// ErrInvalidChannel rejects unknown delivery channels.
	ErrInvalidChannel = errors.New("broadcast: invalid channel")
	// ErrAlertNotFound is returned when no alert row exists for the id.
	ErrAlertNotFound = errors.New("broadcast: alert not found")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OutboxWriter enqueues realtime notifications inside the caller's transaction.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
}

// Service stores operator alerts and hands them to the delivery gateway via
// the outbox. Actual sms/whatsapp delivery is the gateway's concern.
type Service struct {
	pool   TxBeginner
	repo   *Repository
	outbox OutboxWriter
	now    func() time.Time
}

func NewService(pool TxBeginner, repo *Repository, outbox OutboxWriter) *Service {
	if outbox == nil {
		outbox = grievance.NewOutboxStore()
	}
	return &Service{
		pool:   pool,
		repo:   repo,
		outbox: outbox,
		now:    time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SendParams describes one alert to broadcast.
type SendParams struct {
	Title    string
	Message  string
	Channel  Channel
	Priority Priority
	Zone     string
}

// Send validates, stores, and enqueues the alert in a single transaction.
func (s *Service) Send(ctx context.Context, params SendParams) (Alert, error) {
	if strings.TrimSpace(params.Title) == "" {
		return Alert{}, fmt.Errorf("broadcast: title required")
	}
	if strings.TrimSpace(params.Message) == "" {
		return Alert{}, fmt.Errorf("broadcast: message required")
	}
	if params.Channel != ChannelSMS && params.Channel != ChannelWhatsApp {
		return Alert{}, fmt.Errorf("%w: %q", ErrInvalidChannel, params.Channel)
	}
	if params.Priority == "" {
		params.Priority = PriorityNormal
	}
	if params.Priority != PriorityNormal && params.Priority != PriorityHigh {
		return Alert{}, fmt.Errorf("broadcast: invalid priority %q", params.Priority)
	}
	if !grievance.ValidZone(params.Zone) && params.Zone != grievance.ZoneAll {
		return Alert{}, fmt.Errorf("broadcast: invalid zone %q", params.Zone)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Alert{}, fmt.Errorf("broadcast: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	sentAt := s.now().UTC()
	const query = `
        INSERT INTO broadcasts (title, message, channel, priority, zone, status, sent_at)
        VALUES ($1, $2, $3, $4, $5, 'sent', $6)
        RETURNING id, title, message, channel, priority, COALESCE(zone, ''), status, sent_at, created_at
    `
	var alert Alert
	err = tx.QueryRow(ctx, query,
		params.Title,
		params.Message,
		params.Channel,
		params.Priority,
		nullableZone(params.Zone),
		sentAt,
	).Scan(&alert.ID, &alert.Title, &alert.Message, &alert.Channel, &alert.Priority, &alert.Zone, &alert.Status, &alert.SentAt, &alert.CreatedAt)
	if err != nil {
		return Alert{}, fmt.Errorf("broadcast: insert alert: %w", err)
	}

	payload := map[string]any{
		"broadcast_id": alert.ID,
		"title":        alert.Title,
		"channel":      string(alert.Channel),
		"priority":     string(alert.Priority),
		"zone":         alert.Zone,
	}
	if err := s.outbox.Enqueue(ctx, tx, TopicSent, payload); err != nil {
		return Alert{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Alert{}, fmt.Errorf("broadcast: commit: %w", err)
	}
	return alert, nil
}

// History lists past alerts, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Alert, error) {
	return s.repo.History(ctx, limit)
}

func nullableZone(zone string) any {
	if zone == "" || zone == grievance.ZoneAll {
		return nil
	}
	return zone
}
