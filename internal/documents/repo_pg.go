package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, user_id, file_name, original_filename, storage_key, size_bytes, mime_type, status, extracted_text, category, subcategory, summary, tags, error_message, uploaded_at, processed_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    file_name,
    original_filename,
    storage_key,
    size_bytes,
    mime_type,
    status,
    tags,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	tags, err := marshalTags(doc.Tags)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.OriginalFilename,
		doc.StorageKey,
		doc.SizeBytes,
		doc.MimeType,
		doc.Status,
		tags,
		doc.UploadedAt,
	)
	return err
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND id = $2
LIMIT 1`

	row := r.DB.QueryRowContext(ctx, query, userID, documentID)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// List returns documents matching the query, newest first.
func (r *PGRepo) List(ctx context.Context, q Query) ([]Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1`
	args := []any{q.UserID}

	if q.Category != "" {
		args = append(args, q.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if pattern, ok := searchPattern(q.Search); ok {
		args = append(args, pattern)
		n := len(args)
		query += fmt.Sprintf(` AND (original_filename ILIKE $%d OR summary ILIKE $%d OR category ILIKE $%d OR subcategory ILIKE $%d OR tags::text ILIKE $%d)`, n, n, n, n, n)
	}
	query += " ORDER BY uploaded_at DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// SetProcessing claims a pending document for processing. ErrNotFound
// reports that no pending document with the ID exists.
func (r *PGRepo) SetProcessing(ctx context.Context, documentID string) error {
	const query = `
UPDATE documents
SET status = 'processing'
WHERE id = $1 AND status = 'pending'`
	res, err := r.DB.ExecContext(ctx, query, documentID)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProcessed writes the terminal done state with the pipeline output.
func (r *PGRepo) SetProcessed(ctx context.Context, documentID string, result ProcessResult, processedAt time.Time) error {
	const query = `
UPDATE documents
SET status = 'done',
    extracted_text = $2,
    category = $3,
    subcategory = $4,
    summary = $5,
    tags = $6,
    error_message = NULL,
    processed_at = $7
WHERE id = $1 AND status = 'processing'`

	tags, err := marshalTags(result.Tags)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		documentID,
		result.ExtractedText,
		result.Category,
		result.Subcategory,
		result.Summary,
		tags,
		processedAt,
	)
	return err
}

// SetFailed writes the terminal error state.
func (r *PGRepo) SetFailed(ctx context.Context, documentID, message string) error {
	const query = `
UPDATE documents
SET status = 'error', error_message = $2
WHERE id = $1 AND status IN ('pending', 'processing')`
	_, err := r.DB.ExecContext(ctx, query, documentID, message)
	return err
}

// Delete removes a document owned by the user.
func (r *PGRepo) Delete(ctx context.Context, userID, documentID string) error {
	const query = `DELETE FROM documents WHERE user_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, userID, documentID)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var extractedText sql.NullString
	var category sql.NullString
	var subcategory sql.NullString
	var summary sql.NullString
	var tags []byte
	var errorMessage sql.NullString
	var processedAt sql.NullTime

	if err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.OriginalFilename,
		&doc.StorageKey,
		&doc.SizeBytes,
		&doc.MimeType,
		&doc.Status,
		&extractedText,
		&category,
		&subcategory,
		&summary,
		&tags,
		&errorMessage,
		&doc.UploadedAt,
		&processedAt,
	); err != nil {
		return Document{}, err
	}

	if extractedText.Valid {
		doc.ExtractedText = extractedText.String
	}
	if category.Valid {
		doc.Category = category.String
	}
	if subcategory.Valid {
		doc.Subcategory = subcategory.String
	}
	if summary.Valid {
		doc.Summary = summary.String
	}
	if errorMessage.Valid {
		doc.ErrorMessage = errorMessage.String
	}
	if processedAt.Valid {
		t := processedAt.Time
		doc.ProcessedAt = &t
	}

	doc.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &doc.Tags); err != nil {
			return Document{}, fmt.Errorf("decode tags for document %s: %w", doc.ID, err)
		}
	}
	return doc, nil
}

func marshalTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return data, nil
}

// searchPattern strips LIKE metacharacters from user input so they are
// treated literally, and returns the ILIKE pattern.
func searchPattern(raw string) (string, bool) {
	cleaned := strings.ReplaceAll(raw, "%", "")
	cleaned = strings.ReplaceAll(cleaned, "_", `\_`)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", false
	}
	return "%" + cleaned + "%", true
}

var _ Repo = (*PGRepo)(nil)
