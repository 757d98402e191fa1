package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docmanager-backend/internal/bootstrap"
	"docmanager-backend/internal/shared/config"
)

type scriptedLLM struct {
	response string
}

func (s scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.response, nil
}

const financeReply = `{
	"category": "Finance",
	"subcategory": "Invoice",
	"summary": "An invoice requesting payment for services.",
	"tags": ["invoice", "payment", "finance"]
}`

func buildTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:              "0",
		Env:               "dev",
		CORSAllowOrigin:   []string{"http://localhost:3000"},
		ObjectStoreType:   "local",
		LocalStoreDir:     t.TempDir(),
		WorkerConcurrency: 2,
	}
	app, err := bootstrap.BuildWithClient(cfg, scriptedLLM{response: financeReply})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = app.Jobs.Shutdown(ctx)
	})
	return app
}

func pdfBytes(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "invoice.pdf"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func newUploadRequest(t *testing.T, fileName, contentType string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	addGuestHeader(req)
	return req
}

func addGuestHeader(req *http.Request) {
	req.Header.Set("X-Guest-Id", "test-guest")
}

type documentJSON struct {
	ID               string   `json:"id"`
	Filename         string   `json:"filename"`
	OriginalFilename string   `json:"original_filename"`
	FileSize         int64    `json:"file_size"`
	MimeType         string   `json:"mime_type"`
	Status           string   `json:"status"`
	Category         string   `json:"category"`
	Subcategory      string   `json:"subcategory"`
	Summary          string   `json:"summary"`
	Tags             []string `json:"tags"`
	ErrorMessage     string   `json:"error_message"`
}

func uploadDocument(t *testing.T, app *bootstrap.App, fileName string, data []byte) documentJSON {
	t.Helper()
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, newUploadRequest(t, fileName, "application/pdf", data))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var doc documentJSON
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected document id")
	}
	return doc
}

func waitForTerminalStatus(t *testing.T, app *bootstrap.App, documentID string) documentJSON {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+documentID, nil)
		addGuestHeader(req)
		resp := httptest.NewRecorder()
		app.Router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
		}
		var doc documentJSON
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			t.Fatalf("decode document: %v", err)
		}
		if doc.Status == "done" || doc.Status == "error" {
			return doc
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("document %s never reached a terminal status", documentID)
	return documentJSON{}
}

func TestUploadProcessesToDone(t *testing.T) {
	app := buildTestApp(t)

	uploaded := uploadDocument(t, app, "invoice.pdf", pdfBytes(t))
	if uploaded.Status != "pending" {
		t.Fatalf("upload response should be pending, got %s", uploaded.Status)
	}
	if uploaded.OriginalFilename != "invoice.pdf" {
		t.Fatalf("unexpected original filename %q", uploaded.OriginalFilename)
	}

	doc := waitForTerminalStatus(t, app, uploaded.ID)
	if doc.Status != "done" {
		t.Fatalf("expected done, got %s (error: %q)", doc.Status, doc.ErrorMessage)
	}
	if doc.Category != "Finance" || doc.Subcategory != "Invoice" {
		t.Fatalf("unexpected classification: %s/%s", doc.Category, doc.Subcategory)
	}
	if len(doc.Tags) != 3 {
		t.Fatalf("unexpected tags: %v", doc.Tags)
	}
}

func TestUploadCorruptDocumentEndsInError(t *testing.T) {
	app := buildTestApp(t)

	uploaded := uploadDocument(t, app, "broken.pdf", []byte("definitely not a pdf"))
	doc := waitForTerminalStatus(t, app, uploaded.ID)
	if doc.Status != "error" {
		t.Fatalf("expected error status, got %s", doc.Status)
	}
	if doc.ErrorMessage == "" {
		t.Fatalf("expected an error message")
	}
	if doc.Category != "" {
		t.Fatalf("failed documents must not carry a category, got %q", doc.Category)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	app := buildTestApp(t)

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, newUploadRequest(t, "notes.txt", "text/plain", []byte("hello")))
	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status 415, got %d", resp.Code)
	}

	// Nothing may have been recorded.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	addGuestHeader(req)
	listResp := httptest.NewRecorder()
	app.Router.ServeHTTP(listResp, req)
	var list struct {
		Documents []documentJSON `json:"documents"`
		Total     int            `json:"total"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 0 {
		t.Fatalf("rejected upload must not appear in listing, got %d", list.Total)
	}
}

func TestListFilters(t *testing.T) {
	app := buildTestApp(t)

	first := uploadDocument(t, app, "invoice.pdf", pdfBytes(t))
	waitForTerminalStatus(t, app, first.ID)
	second := uploadDocument(t, app, "report.pdf", []byte("broken bytes"))
	waitForTerminalStatus(t, app, second.ID)

	cases := []struct {
		query   string
		wantIDs []string
	}{
		{"", []string{first.ID, second.ID}},
		{"?category=Finance", []string{first.ID}},
		{"?status=error", []string{second.ID}},
		{"?q=invoice", []string{first.ID}},
		{"?q=nomatch", nil},
		{"?category=Finance&status=error", nil},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents"+tc.query, nil)
		addGuestHeader(req)
		resp := httptest.NewRecorder()
		app.Router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", tc.query, resp.Code)
		}
		var list struct {
			Documents []documentJSON `json:"documents"`
			Total     int            `json:"total"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
			t.Fatalf("%s: decode list: %v", tc.query, err)
		}
		if list.Total != len(tc.wantIDs) {
			t.Fatalf("%s: expected %d documents, got %d", tc.query, len(tc.wantIDs), list.Total)
		}
		got := map[string]bool{}
		for _, doc := range list.Documents {
			got[doc.ID] = true
		}
		for _, id := range tc.wantIDs {
			if !got[id] {
				t.Fatalf("%s: expected document %s in result", tc.query, id)
			}
		}
	}
}

func TestDownloadURLEndpoint(t *testing.T) {
	app := buildTestApp(t)

	uploaded := uploadDocument(t, app, "invoice.pdf", pdfBytes(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+uploaded.ID+"/download-url", nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		URL       string `json:"url"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.URL == "" {
		t.Fatalf("expected a url")
	}
	if payload.ExpiresIn != 3600 {
		t.Fatalf("expected 3600 second expiry, got %d", payload.ExpiresIn)
	}
}

func TestDeleteDocument(t *testing.T) {
	app := buildTestApp(t)

	uploaded := uploadDocument(t, app, "invoice.pdf", pdfBytes(t))
	waitForTerminalStatus(t, app, uploaded.ID)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+uploaded.ID, nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", resp.Code, resp.Body.String())
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+uploaded.ID, nil)
	addGuestHeader(reqGet)
	respGet := httptest.NewRecorder()
	app.Router.ServeHTTP(respGet, reqGet)
	if respGet.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", respGet.Code)
	}
}

func TestGetUnknownDocumentReturns404(t *testing.T) {
	app := buildTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/does-not-exist", nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestDocumentsAreScopedToUser(t *testing.T) {
	app := buildTestApp(t)

	uploaded := uploadDocument(t, app, "invoice.pdf", pdfBytes(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+uploaded.ID, nil)
	req.Header.Set("X-Guest-Id", "someone-else")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("other users must see 404, got %d", resp.Code)
	}
}
