package documents

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"docmanager-backend/internal/llm"
	"docmanager-backend/internal/shared/telemetry"
)

const llmRetryBaseDelay = 300 * time.Millisecond

// retryingLLM retries a single time on transient transport failures.
// Classification errors from well-formed responses never reach here; the
// classifier handles malformed JSON with a fallback result instead.
type retryingLLM struct {
	base       llm.Client
	documentID string
}

func newRetryingLLM(base llm.Client, documentID string) llm.Client {
	if base == nil {
		return nil
	}
	return retryingLLM{base: base, documentID: documentID}
}

func (r retryingLLM) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := r.base.Complete(ctx, prompt)
	if err == nil || !shouldRetryLLM(err) {
		return resp, err
	}

	telemetry.Info("llm.retry", map[string]any{
		"attempt":     1,
		"document_id": r.documentID,
		"error":       sanitizeError(err),
	})
	select {
	case <-time.After(llmRetryBaseDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.base.Complete(ctx, prompt)
}

func shouldRetryLLM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
