package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // documentID -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = doc
	return nil
}

// GetByID returns a document by ID for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[documentID]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// List returns documents matching the query, newest first.
func (r *MemoryRepo) List(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Document{}
	for _, doc := range r.data {
		if doc.UserID != q.UserID {
			continue
		}
		if q.Category != "" && doc.Category != q.Category {
			continue
		}
		if q.Status != "" && doc.Status != q.Status {
			continue
		}
		if q.Search != "" && !matchesSearch(doc, q.Search) {
			continue
		}
		out = append(out, doc)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

// SetProcessing claims a pending document for processing. ErrNotFound
// reports that no pending document with the ID exists.
func (r *MemoryRepo) SetProcessing(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok || doc.Status != StatusPending {
		return ErrNotFound
	}
	doc.Status = StatusProcessing
	r.data[documentID] = doc
	return nil
}

// SetProcessed writes the terminal done state with the pipeline output.
func (r *MemoryRepo) SetProcessed(ctx context.Context, documentID string, result ProcessResult, processedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != StatusProcessing {
		return nil
	}
	doc.Status = StatusDone
	doc.ExtractedText = result.ExtractedText
	doc.Category = result.Category
	doc.Subcategory = result.Subcategory
	doc.Summary = result.Summary
	doc.Tags = append([]string(nil), result.Tags...)
	doc.ErrorMessage = ""
	doc.ProcessedAt = &processedAt
	r.data[documentID] = doc
	return nil
}

// SetFailed writes the terminal error state.
func (r *MemoryRepo) SetFailed(ctx context.Context, documentID, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != StatusPending && doc.Status != StatusProcessing {
		return nil
	}
	doc.Status = StatusError
	doc.ErrorMessage = message
	r.data[documentID] = doc
	return nil
}

// Delete removes a document owned by the user.
func (r *MemoryRepo) Delete(ctx context.Context, userID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok || doc.UserID != userID {
		return ErrNotFound
	}
	delete(r.data, documentID)
	return nil
}

func matchesSearch(doc Document, search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	haystacks := []string{
		doc.OriginalFilename,
		doc.Summary,
		doc.Category,
		doc.Subcategory,
	}
	haystacks = append(haystacks, doc.Tags...)
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

var _ Repo = (*MemoryRepo)(nil)
