package triage

import (
	"time"

	"sahayak/grievance"
)

// Windows holds the SLA resolution windows. The exact table is a
// configuration concern; these values are only defaults.
type Windows struct {
	ByPriority map[grievance.Priority]time.Duration
	// SanitationFactor shortens windows for sanitation categories
	// (garbage, sewage, pest control). 0.5 halves them.
	SanitationFactor float64
}

// DefaultWindows returns the shipped SLA table, pending confirmation from the
// system owner.
func DefaultWindows() Windows {
	return Windows{
		ByPriority: map[grievance.Priority]time.Duration{
			grievance.PriorityCritical: 6 * time.Hour,
			grievance.PriorityHigh:     24 * time.Hour,
			grievance.PriorityMedium:   48 * time.Hour,
			grievance.PriorityLow:      72 * time.Hour,
		},
		SanitationFactor: 0.5,
	}
}

func sanitation(c grievance.Category) bool {
	switch c {
	case grievance.CategoryGarbage, grievance.CategorySewage, grievance.CategoryPestControl:
		return true
	default:
		return false
	}
}

// DurationFor looks up the resolution window for a category/priority pair.
func (w Windows) DurationFor(category grievance.Category, priority grievance.Priority) time.Duration {
	d, ok := w.ByPriority[priority]
	if !ok {
		d = w.ByPriority[grievance.PriorityMedium]
	}
	if d <= 0 {
		d = 48 * time.Hour
	}
	if sanitation(category) && w.SanitationFactor > 0 && w.SanitationFactor < 1 {
		d = time.Duration(float64(d) * w.SanitationFactor)
	}
	return d
}

// DeadlineFor computes the SLA deadline at creation or reclassification.
// Always strictly after createdAt.
func (w Windows) DeadlineFor(createdAt time.Time, category grievance.Category, priority grievance.Priority) time.Time {
	return createdAt.Add(w.DurationFor(category, priority))
}
