package query

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"sahayak/grievance"
)

const statsTTL = 30 * time.Second

// Service exposes the dashboard read APIs: aggregate stats, the activity
// feed, the SLA-breach list, and the filtered complaint list. Every zone
// parameter accepts the "all" sentinel.
type Service struct {
	repo       Repository
	grievances grievance.Repository
	cache      *gocache.Cache
	now        func() time.Time
}

func NewService(repo Repository, grievances grievance.Repository) *Service {
	return &Service{
		repo:       repo,
		grievances: grievances,
		cache:      gocache.New(statsTTL, time.Minute),
		now:        time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Stats computes the KPI aggregates for a zone. A zone with no grievances
// yields zeros, never an error. Results are cached briefly per zone.
func (s *Service) Stats(ctx context.Context, zone string) (Stats, error) {
	zone = normalizeZone(zone)
	cacheKey := "stats:" + zone
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(Stats), nil
	}

	total, open, err := s.repo.Counts(ctx, zone)
	if err != nil {
		return Stats{}, err
	}

	now := s.now().UTC()
	todayStart := now.Truncate(24 * time.Hour)
	yesterdayStart := todayStart.Add(-24 * time.Hour)

	resolvedToday, err := s.repo.ResolvedBetween(ctx, zone, todayStart, now)
	if err != nil {
		return Stats{}, err
	}
	createdToday, err := s.repo.CreatedBetween(ctx, zone, todayStart, now)
	if err != nil {
		return Stats{}, err
	}
	createdYesterday, err := s.repo.CreatedBetween(ctx, zone, yesterdayStart, todayStart)
	if err != nil {
		return Stats{}, err
	}
	avgHours, err := s.repo.AvgResolutionHours(ctx, zone)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalComplaints:    total,
		OpenComplaints:     open,
		ResolvedToday:      resolvedToday,
		AvgResolutionHours: avgHours,
		TrendPercent:       trendPercent(createdToday, createdYesterday),
	}
	s.cache.Set(cacheKey, stats, statsTTL)
	return stats, nil
}

// RecentActivity merges creation and lifecycle events, newest first.
func (s *Service) RecentActivity(ctx context.Context, zone string, limit int) ([]ActivityEvent, error) {
	return s.repo.RecentActivity(ctx, normalizeZone(zone), limit)
}

// SLABreaches lists non-resolved grievances past deadline, each annotated
// with whole hours overdue (floor).
func (s *Service) SLABreaches(ctx context.Context, zone string) ([]Breach, error) {
	now := s.now().UTC()
	overdue, err := s.repo.Overdue(ctx, normalizeZone(zone), now)
	if err != nil {
		return nil, err
	}

	breaches := make([]Breach, 0, len(overdue))
	for _, g := range overdue {
		breaches = append(breaches, Breach{
			Grievance:    g,
			HoursOverdue: int(now.Sub(g.SLADeadline).Hours()),
		})
	}
	return breaches, nil
}

// List serves the filtered complaint inbox.
func (s *Service) List(ctx context.Context, filters grievance.Filters) ([]grievance.Grievance, error) {
	filters.Zone = normalizeZone(filters.Zone)
	if filters.Category != "" && !grievance.ValidCategory(filters.Category) {
		return nil, fmt.Errorf("query: invalid category %q", filters.Category)
	}
	if filters.Status != "" && !grievance.ValidStatus(filters.Status) {
		return nil, fmt.Errorf("query: invalid status %q", filters.Status)
	}
	return s.grievances.List(ctx, filters)
}

// Get fetches one grievance for the detail pane.
func (s *Service) Get(ctx context.Context, id string) (grievance.Grievance, error) {
	return s.grievances.Get(ctx, id)
}

// CallRecord fetches the voice attachment for a grievance.
func (s *Service) CallRecord(ctx context.Context, grievanceID string) (grievance.CallRecord, error) {
	return s.grievances.GetCallRecord(ctx, grievanceID)
}

func normalizeZone(zone string) string {
	if zone == grievance.ZoneAll {
		return ""
	}
	return zone
}

// trendPercent is the day-over-day intake change. A zero yesterday with
// intake today reads as +100%.
func trendPercent(today, yesterday int) float64 {
	switch {
	case yesterday == 0 && today == 0:
		return 0
	case yesterday == 0:
		return 100
	default:
		return (float64(today-yesterday) / float64(yesterday)) * 100
	}
}
