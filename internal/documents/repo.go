package documents

import (
	"context"
	"time"
)

// Query narrows List results. Empty fields are ignored. Search is a
// case-insensitive substring match across original filename, summary,
// category, subcategory, and tags.
type Query struct {
	UserID   string
	Category string
	Status   string
	Search   string
}

// ProcessResult carries the pipeline's successful output into the terminal write.
type ProcessResult struct {
	ExtractedText string
	Category      string
	Subcategory   string
	Summary       string
	Tags          []string
}

// Repo defines persistence operations for documents. The status setters are
// conditional on the current status so a terminal state is never overwritten.
// SetProcessing returns ErrNotFound when there is no pending document to
// claim; SetProcessed and SetFailed treat a lost guard as a silent no-op.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	List(ctx context.Context, q Query) ([]Document, error)
	SetProcessing(ctx context.Context, documentID string) error
	SetProcessed(ctx context.Context, documentID string, result ProcessResult, processedAt time.Time) error
	SetFailed(ctx context.Context, documentID, message string) error
	Delete(ctx context.Context, userID, documentID string) error
}
