package triage

import (
	"testing"
	"time"

	"sahayak/grievance"
)

func TestDurationFor(t *testing.T) {
	w := DefaultWindows()

	cases := []struct {
		name     string
		category grievance.Category
		priority grievance.Priority
		want     time.Duration
	}{
		{"critical road", grievance.CategoryRoad, grievance.PriorityCritical, 6 * time.Hour},
		{"high water", grievance.CategoryWater, grievance.PriorityHigh, 24 * time.Hour},
		{"medium streetlight", grievance.CategoryStreetlight, grievance.PriorityMedium, 48 * time.Hour},
		{"low trees", grievance.CategoryTrees, grievance.PriorityLow, 72 * time.Hour},
		{"sanitation halves garbage", grievance.CategoryGarbage, grievance.PriorityHigh, 12 * time.Hour},
		{"sanitation halves sewage", grievance.CategorySewage, grievance.PriorityCritical, 3 * time.Hour},
		{"sanitation halves pest control", grievance.CategoryPestControl, grievance.PriorityLow, 36 * time.Hour},
		{"unknown priority falls back to medium", grievance.CategoryRoad, grievance.Priority("weird"), 48 * time.Hour},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := w.DurationFor(tc.category, tc.priority); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestDeadlineFor_AlwaysAfterCreation(t *testing.T) {
	w := DefaultWindows()
	createdAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for _, priority := range []grievance.Priority{
		grievance.PriorityLow, grievance.PriorityMedium, grievance.PriorityHigh, grievance.PriorityCritical,
	} {
		deadline := w.DeadlineFor(createdAt, grievance.CategoryGarbage, priority)
		if !deadline.After(createdAt) {
			t.Fatalf("priority %s: deadline %v not after creation %v", priority, deadline, createdAt)
		}
	}
}

func TestDurationFor_ZeroTableStillPositive(t *testing.T) {
	w := Windows{ByPriority: map[grievance.Priority]time.Duration{}}
	if got := w.DurationFor(grievance.CategoryRoad, grievance.PriorityMedium); got != 48*time.Hour {
		t.Fatalf("expected 48h fallback, got %v", got)
	}
}
