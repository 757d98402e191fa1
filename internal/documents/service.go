package documents

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"docmanager-backend/internal/queue"
	"docmanager-backend/internal/shared/storage/object"
	"docmanager-backend/internal/shared/telemetry"
	"docmanager-backend/internal/shared/util"
)

const (
	mimePDF = "application/pdf"

	defaultMaxUploadBytes = 50 << 20
	signedURLTTL          = time.Hour
)

// Service contains business logic for documents. Upload is the intake path;
// the asynchronous status transitions belong to the Pipeline.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	Jobs  *queue.Dispatcher

	// MaxUploadBytes caps accepted payloads; zero means the 50 MiB default.
	MaxUploadBytes int64
}

// Upload validates the payload, creates the pending record, stores the blob,
// and schedules exactly one processing run. The returned document is still
// pending; callers observe completion by polling Get.
func (s *Service) Upload(ctx context.Context, userID, originalName, declaredMIME string, data []byte) (Document, error) {
	if userID == "" || originalName == "" {
		return Document{}, ErrInvalidInput
	}
	if declaredMIME != mimePDF {
		return Document{}, ErrUnsupportedType
	}
	if int64(len(data)) > s.maxUploadBytes() {
		return Document{}, ErrPayloadTooLarge
	}

	sanitized, err := util.SanitizeFileName(originalName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	docID := uuid.NewString()
	storageKey := path.Join(util.HashUserKey(userID), docID, sanitized)

	doc := Document{
		ID:               docID,
		UserID:           userID,
		FileName:         docID + "_" + sanitized,
		OriginalFilename: originalName,
		StorageKey:       storageKey,
		SizeBytes:        int64(len(data)),
		MimeType:         mimePDF,
		Status:           StatusPending,
		Tags:             []string{},
		UploadedAt:       time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, fmt.Errorf("create document record: %w", err)
	}

	if _, err := s.Store.Put(ctx, storageKey, mimePDF, bytes.NewReader(data)); err != nil {
		// The pending record is intentionally left in place; there is no
		// compensating delete and no retry.
		telemetry.Error("document.intake.blob_failed", map[string]any{
			"document_id": docID,
			"user_id":     userID,
			"storage_key": storageKey,
			"err":         err.Error(),
		})
		return Document{}, fmt.Errorf("store document %s: %w", docID, err)
	}

	owned := make([]byte, len(data))
	copy(owned, data)
	if err := s.Jobs.Submit(queue.Job{DocumentID: docID, FileName: originalName, Data: owned}); err != nil {
		// The document stays pending; there is no retry queue.
		telemetry.Error("document.intake.schedule_failed", map[string]any{
			"document_id": docID,
			"user_id":     userID,
			"err":         err.Error(),
		})
	}

	return doc, nil
}

// Get returns a document by ID for a user.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if userID == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// List returns the user's documents matching the query, newest first.
func (s *Service) List(ctx context.Context, q Query) ([]Document, error) {
	if q.UserID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.List(ctx, q)
}

// DownloadURL returns a time-limited signed URL for the stored blob.
func (s *Service) DownloadURL(ctx context.Context, userID, documentID string) (string, time.Duration, error) {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return "", 0, err
	}
	url, err := s.Store.SignedURL(ctx, doc.StorageKey, signedURLTTL)
	if err != nil {
		return "", 0, fmt.Errorf("sign url for document %s: %w", documentID, err)
	}
	return url, signedURLTTL, nil
}

// Delete removes the blob and then the record.
func (s *Service) Delete(ctx context.Context, userID, documentID string) error {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
		return fmt.Errorf("delete blob for document %s: %w", documentID, err)
	}
	return s.Repo.Delete(ctx, userID, documentID)
}

func (s *Service) maxUploadBytes() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}
