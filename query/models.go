package query

import (
	"time"

	"sahayak/grievance"
)

// Stats feeds the dashboard KPI cards for one zone (or all zones).
type Stats struct {
	TotalComplaints    int
	OpenComplaints     int
	ResolvedToday      int
	AvgResolutionHours float64
	// TrendPercent compares today's intake volume with yesterday's.
	// Positive means more complaints today.
	TrendPercent float64
}

// ActivityEvent is one row of the recent-activity feed: a grievance creation
// or lifecycle change, newest first.
type ActivityEvent struct {
	GrievanceID     string
	ComplaintNumber string
	Type            string
	Category        grievance.Category
	Zone            string
	OccurredAt      time.Time
}

// Breach annotates an overdue grievance with whole hours past deadline.
type Breach struct {
	Grievance    grievance.Grievance
	HoursOverdue int
}
