package triage

import "sahayak/grievance"

// transitions enumerates the legal status edges. Resolved is terminal; the
// service additionally treats resolve-on-resolved as an already-satisfied
// no-op rather than an invalid edge.
var transitions = map[grievance.Status][]grievance.Status{
	grievance.StatusOpen:       {grievance.StatusInProgress, grievance.StatusEscalated},
	grievance.StatusInProgress: {grievance.StatusResolved, grievance.StatusEscalated},
	grievance.StatusEscalated:  {grievance.StatusInProgress, grievance.StatusResolved},
	grievance.StatusResolved:   {},
}

// CanTransition reports whether the edge from -> to is legal.
func CanTransition(from, to grievance.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
