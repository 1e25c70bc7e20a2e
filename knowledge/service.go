package knowledge

import (
	"context"
	"fmt"
	"strings"
)

// Service manages the benefits-registry document lifecycle: register in
// processing, settle to completed or failed, delete on operator action.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upload registers a newly uploaded document. Indexing is asynchronous, so
// every document starts in processing.
func (s *Service) Upload(ctx context.Context, filename string, sizeBytes int64) (Document, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return Document{}, fmt.Errorf("knowledge: filename required")
	}
	if sizeBytes <= 0 {
		return Document{}, fmt.Errorf("knowledge: invalid size %d", sizeBytes)
	}

	return s.repo.Create(ctx, Document{
		Filename:  filename,
		SizeBytes: sizeBytes,
		Status:    StatusProcessing,
	})
}

// MarkIndexed settles a document to completed.
func (s *Service) MarkIndexed(ctx context.Context, id string) (Document, error) {
	return s.repo.UpdateStatus(ctx, id, StatusCompleted)
}

// MarkFailed settles a document to failed.
func (s *Service) MarkFailed(ctx context.Context, id string) (Document, error) {
	return s.repo.UpdateStatus(ctx, id, StatusFailed)
}

// Delete removes a document permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// List returns all documents, newest upload first.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}
