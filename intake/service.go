package intake

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"sahayak/classify"
	"sahayak/grievance"
	"sahayak/triage"
)

var (
	// ErrMissingCallID rejects a voice webhook without its call identifier.
	ErrMissingCallID = errors.New("intake: missing call id")
	// ErrMissingSender rejects an sms/whatsapp payload without a sender.
	ErrMissingSender = errors.New("intake: missing sender")
	// ErrEmptyMessage rejects an sms/whatsapp payload with no text.
	ErrEmptyMessage = errors.New("intake: empty message body")
	// ErrMissingDescription rejects a web form without a description.
	ErrMissingDescription = errors.New("intake: missing description")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TimelineWriter appends lifecycle events inside the caller's transaction.
type TimelineWriter interface {
	Append(ctx context.Context, tx pgx.Tx, grievanceID, eventType string, actorID *string, payload map[string]any) error
}

// OutboxWriter enqueues realtime notifications inside the caller's transaction.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
}

// IdempotencyReserver claims external event keys inside the caller's
// transaction.
type IdempotencyReserver interface {
	Reserve(ctx context.Context, tx pgx.Tx, key string) error
}

// Service normalizes channel payloads into grievances. One adapter method
// per channel; all of them funnel into the same creation transaction.
type Service struct {
	pool        TxBeginner
	repo        grievance.Repository
	timeline    TimelineWriter
	outbox      OutboxWriter
	idem        IdempotencyReserver
	classifier  classify.Classifier
	windows     triage.Windows
	idGenerator func() string
	now         func() time.Time
}

func NewService(pool TxBeginner, repo grievance.Repository, timeline TimelineWriter, outbox OutboxWriter, idem IdempotencyReserver, classifier classify.Classifier, windows triage.Windows) *Service {
	if timeline == nil {
		timeline = grievance.NewTimelineStore()
	}
	if outbox == nil {
		outbox = grievance.NewOutboxStore()
	}
	if idem == nil {
		idem = grievance.NewIdempotencyStore()
	}
	if classifier == nil {
		classifier = classify.Disabled{}
	}
	return &Service{
		pool:        pool,
		repo:        repo,
		timeline:    timeline,
		outbox:      outbox,
		idem:        idem,
		classifier:  classifier,
		windows:     windows,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// HandleVoiceWebhook ingests a call-completion event, creating exactly one
// grievance and call record per external call id. Webhook retries are
// answered with the originally created grievance.
func (s *Service) HandleVoiceWebhook(ctx context.Context, ev VoiceCallEvent) (grievance.Grievance, error) {
	if strings.TrimSpace(ev.CallID) == "" {
		return grievance.Grievance{}, ErrMissingCallID
	}

	draft := s.draft(ctx, grievance.ChannelVoice, ev.Category, ev.Transcript, ev.Location, ev.Zone)
	draft.CitizenName = nullable(ev.CitizenName)
	draft.CitizenPhone = nullable(ev.CitizenPhone)

	callRec := &grievance.CallRecord{
		ExternalCallID:  ev.CallID,
		DurationSeconds: ev.DurationSeconds,
		Transcript:      ev.Transcript,
		Summary:         ev.Summary,
		RecordingURL:    ev.RecordingURL,
	}

	created, replay, err := s.create(ctx, draft, callRec, "voice:"+ev.CallID)
	if err != nil {
		return grievance.Grievance{}, err
	}
	if replay {
		return s.repo.GetByExternalCallID(ctx, ev.CallID)
	}
	return created, nil
}

// ReceiveSMS ingests a raw text complaint.
func (s *Service) ReceiveSMS(ctx context.Context, msg SMSMessage) (grievance.Grievance, error) {
	return s.receiveText(ctx, grievance.ChannelSMS, msg)
}

// ReceiveWhatsApp ingests a WhatsApp text. The payload shape matches sms so
// the same normalizer applies.
func (s *Service) ReceiveWhatsApp(ctx context.Context, msg SMSMessage) (grievance.Grievance, error) {
	return s.receiveText(ctx, grievance.ChannelWhatsApp, msg)
}

func (s *Service) receiveText(ctx context.Context, channel grievance.Channel, msg SMSMessage) (grievance.Grievance, error) {
	if strings.TrimSpace(msg.From) == "" {
		return grievance.Grievance{}, ErrMissingSender
	}
	if strings.TrimSpace(msg.Body) == "" {
		return grievance.Grievance{}, ErrEmptyMessage
	}

	draft := s.draft(ctx, channel, "", msg.Body, "", msg.Zone)
	draft.CitizenPhone = nullable(msg.From)

	created, _, err := s.create(ctx, draft, nil, "")
	return created, err
}

// SubmitWeb ingests a structured portal submission.
func (s *Service) SubmitWeb(ctx context.Context, form WebForm) (grievance.Grievance, error) {
	if strings.TrimSpace(form.Description) == "" {
		return grievance.Grievance{}, ErrMissingDescription
	}

	draft := s.draft(ctx, grievance.ChannelWeb, form.Category, form.Description, form.Location, form.Zone)
	draft.CitizenName = nullable(form.CitizenName)
	draft.CitizenPhone = nullable(form.CitizenPhone)
	draft.Latitude = form.Latitude
	draft.Longitude = form.Longitude

	created, _, err := s.create(ctx, draft, nil, "")
	return created, err
}

// draft normalizes the channel payload into a creation-ready grievance and
// runs the best-effort classification enrichment.
func (s *Service) draft(ctx context.Context, channel grievance.Channel, suppliedCategory, text, location, zone string) grievance.Grievance {
	category := normalizeCategory(suppliedCategory, text)

	g := grievance.Grievance{
		ID:          s.idGenerator(),
		Channel:     channel,
		Category:    category,
		Location:    strings.TrimSpace(location),
		Description: strings.TrimSpace(text),
		Priority:    grievance.PriorityMedium,
		Status:      grievance.StatusOpen,
	}
	if grievance.ValidZone(zone) {
		g.Zone = zone
	}

	if res, err := s.classifier.Classify(ctx, text); err == nil {
		sentiment := res.Sentiment
		g.Sentiment = &sentiment
		if res.Summary != "" {
			summary := res.Summary
			g.AISummary = &summary
		}
		if g.Category == grievance.CategoryOther && res.Category != "" {
			g.Category = res.Category
		}
	} else if !errors.Is(err, classify.ErrUnavailable) {
		log.Printf("intake: classify: %v", err)
	} else {
		log.Printf("intake: classification unavailable, proceeding without derived fields: %v", err)
	}

	g.Title = titleFor(g.Category, g.Location)
	g.SLADeadline = s.windows.DeadlineFor(s.now().UTC(), g.Category, g.Priority)
	return g
}

// create runs the single intake transaction: reserve the idempotency key
// (voice only), insert the grievance and call record, append the timeline
// event, and enqueue the realtime notifications. replay reports that the
// idempotency key was already claimed and nothing was written.
func (s *Service) create(ctx context.Context, draft grievance.Grievance, callRec *grievance.CallRecord, idemKey string) (created grievance.Grievance, replay bool, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return grievance.Grievance{}, false, fmt.Errorf("intake: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if idemKey != "" {
		if err := s.idem.Reserve(ctx, tx, idemKey); err != nil {
			if errors.Is(err, grievance.ErrDuplicateIdempotencyKey) {
				return grievance.Grievance{}, true, nil
			}
			return grievance.Grievance{}, false, err
		}
	}

	created, err = s.repo.Create(ctx, tx, draft)
	if err != nil {
		return grievance.Grievance{}, false, err
	}

	if callRec != nil {
		callRec.GrievanceID = created.ID
		if _, err := s.repo.CreateCallRecord(ctx, tx, *callRec); err != nil {
			return grievance.Grievance{}, false, err
		}
	}

	payload := map[string]any{
		"complaint_number": created.ComplaintNumber,
		"channel":          string(created.Channel),
		"category":         string(created.Category),
		"zone":             created.Zone,
	}
	if err := s.timeline.Append(ctx, tx, created.ID, grievance.EventCreated, nil, payload); err != nil {
		return grievance.Grievance{}, false, err
	}

	outboxPayload := map[string]any{
		"grievance_id":     created.ID,
		"complaint_number": created.ComplaintNumber,
		"channel":          string(created.Channel),
		"category":         string(created.Category),
		"zone":             created.Zone,
	}
	if err := s.outbox.Enqueue(ctx, tx, grievance.TopicCreated, outboxPayload); err != nil {
		return grievance.Grievance{}, false, err
	}
	if callRec != nil {
		callPayload := map[string]any{
			"grievance_id":     created.ID,
			"external_call_id": callRec.ExternalCallID,
			"duration_seconds": callRec.DurationSeconds,
		}
		if err := s.outbox.Enqueue(ctx, tx, grievance.TopicCallRecorded, callPayload); err != nil {
			return grievance.Grievance{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return grievance.Grievance{}, false, fmt.Errorf("intake: commit tx: %w", err)
	}
	return created, false, nil
}

func nullable(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
