// Package classify derives sentiment and a short summary from citizen
// complaint text. The capability is best-effort: intake never blocks on it,
// and a failure here leaves the derived fields null.
package classify

import (
	"context"

	"sahayak/grievance"
)

// Result carries the derived fields for one complaint text.
type Result struct {
	Sentiment grievance.Sentiment
	Summary   string
	Category  grievance.Category // best-effort; empty when undeterminable
}

// Classifier is the external classification capability.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// Disabled is a no-op classifier for deployments without an API key. It
// always reports unavailability so intake proceeds with null fields.
type Disabled struct{}

func (Disabled) Classify(ctx context.Context, text string) (Result, error) {
	return Result{}, ErrUnavailable
}
