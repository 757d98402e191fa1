package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docmanager-backend/internal/classify"
	"docmanager-backend/internal/extract"
	"docmanager-backend/internal/llm"
	"docmanager-backend/internal/queue"
	"docmanager-backend/internal/shared/metrics"
	"docmanager-backend/internal/shared/telemetry"
)

// Pipeline runs extraction and classification for one uploaded document and
// writes the terminal status exactly once. Failures from either step are
// converted into the error status; nothing escapes a run.
type Pipeline struct {
	Repo    Repo
	LLM     llm.Client
	Metrics *metrics.Pipeline
}

// ProcessJob adapts queue jobs onto Process.
func (p *Pipeline) ProcessJob(ctx context.Context, job queue.Job) {
	p.Process(ctx, job.DocumentID, job.FileName, job.Data)
}

// Process drives one document from pending to done or error. The raw bytes
// are passed through from intake rather than re-fetched from the blob store.
func (p *Pipeline) Process(ctx context.Context, documentID, fileName string, data []byte) {
	startedAt := time.Now().UTC()
	p.Metrics.RunStarted()
	defer p.Metrics.RunFinished()

	fromStatus := StatusPending
	defer func() {
		if r := recover(); r != nil {
			p.fail(ctx, documentID, fmt.Errorf("panic: %v", r), startedAt, fromStatus)
		}
	}()

	if err := p.Repo.SetProcessing(ctx, documentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			// No pending document to claim: unknown ID or a duplicate run
			// against one that already moved on.
			telemetry.Info("document.skip", map[string]any{
				"document_id": documentID,
				"reason":      "no pending document",
			})
			return
		}
		p.fail(ctx, documentID, fmt.Errorf("set processing: %w", err), startedAt, fromStatus)
		return
	}
	fromStatus = StatusProcessing
	telemetry.Info("document.status", map[string]any{
		"document_id":       documentID,
		"status":            StatusProcessing,
		"status_transition": "pending->processing",
	})

	result, err := p.run(ctx, documentID, fileName, data)
	if err != nil {
		p.fail(ctx, documentID, err, startedAt, fromStatus)
		return
	}

	processedAt := time.Now().UTC()
	if err := p.Repo.SetProcessed(ctx, documentID, result, processedAt); err != nil {
		// Terminal write failed; the document stays at its last written
		// status and needs operator attention.
		telemetry.Error("document.status_write_failed", map[string]any{
			"document_id": documentID,
			"err":         err.Error(),
		})
		p.Metrics.ObserveOutcome(StatusError, processedAt.Sub(startedAt).Seconds())
		return
	}

	p.Metrics.ObserveOutcome(StatusDone, processedAt.Sub(startedAt).Seconds())
	telemetry.Info("document.status", map[string]any{
		"document_id":       documentID,
		"status":            StatusDone,
		"status_transition": "processing->done",
		"duration_ms":       float64(processedAt.Sub(startedAt).Microseconds()) / 1000.0,
	})
}

// run executes the two pipeline steps and carries their outcome back as a
// single result or error, so the terminal write happens in one place.
func (p *Pipeline) run(ctx context.Context, documentID, fileName string, data []byte) (ProcessResult, error) {
	text, err := extract.ExtractTextFromBytes(data)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("extract text: %w", err)
	}

	classifier := &classify.Classifier{LLM: newRetryingLLM(p.LLM, documentID)}
	classified, err := classifier.Categorize(ctx, text, fileName)
	if err != nil {
		return ProcessResult{}, err
	}

	return ProcessResult{
		ExtractedText: text,
		Category:      classified.Category,
		Subcategory:   classified.Subcategory,
		Summary:       classified.Summary,
		Tags:          classified.Tags,
	}, nil
}

func (p *Pipeline) fail(ctx context.Context, documentID string, err error, startedAt time.Time, fromStatus string) {
	failedAt := time.Now().UTC()
	if updateErr := p.Repo.SetFailed(ctx, documentID, err.Error()); updateErr != nil {
		telemetry.Error("document.status_write_failed", map[string]any{
			"document_id": documentID,
			"err":         updateErr.Error(),
			"cause":       err.Error(),
		})
	}
	p.Metrics.ObserveOutcome(StatusError, failedAt.Sub(startedAt).Seconds())
	telemetry.Info("document.status", map[string]any{
		"document_id":       documentID,
		"status":            StatusError,
		"status_transition": fromStatus + "->" + StatusError,
		"error":             err.Error(),
		"duration_ms":       float64(failedAt.Sub(startedAt).Microseconds()) / 1000.0,
	})
}
