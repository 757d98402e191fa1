package documents

import "time"

// Processing statuses for a document. StatusDone and StatusError are terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// Document represents an uploaded PDF owned by a user, together with its
// processing state and AI-derived classification.
type Document struct {
	ID               string
	UserID           string
	FileName         string // stored name, "<id>_<original>"
	OriginalFilename string
	StorageKey       string
	SizeBytes        int64
	MimeType         string
	Status           string
	ExtractedText    string
	Category         string
	Subcategory      string
	Summary          string
	Tags             []string
	ErrorMessage     string
	UploadedAt       time.Time
	ProcessedAt      *time.Time
}
