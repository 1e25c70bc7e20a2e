package knowledge

import "time"

// Status tracks a document's indexing lifecycle.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Document is one entry in the benefits-registry knowledge base. Its
// lifecycle is independent of grievances and it is the only entity operators
// may physically delete.
type Document struct {
	ID         string
	Filename   string
	SizeBytes  int64
	Status     Status
	UploadedAt time.Time
}
