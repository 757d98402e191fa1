package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

func TestExtractTextFromBytes(t *testing.T) {
	text, err := ExtractTextFromBytes(readFixture(t, "invoice.pdf"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "Invoice #1042") {
		t.Fatalf("expected first page text, got %q", text)
	}
	if !strings.Contains(text, "net 30") {
		t.Fatalf("expected second page text, got %q", text)
	}
	if !strings.Contains(text, "\n\n") {
		t.Fatalf("expected pages joined with a blank line, got %q", text)
	}
}

func TestExtractTextFromBytesBlankPage(t *testing.T) {
	text, err := ExtractTextFromBytes(readFixture(t, "blank.pdf"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text for blank document, got %q", text)
	}
}

func TestExtractTextFromBytesCorrupt(t *testing.T) {
	cases := map[string][]byte{
		"not a pdf":        []byte("this is plain text, not a pdf"),
		"empty":            {},
		"truncated header": []byte("%PDF-1.4\n"),
	}
	for name, data := range cases {
		if _, err := ExtractTextFromBytes(data); !errors.Is(err, ErrUnreadable) {
			t.Fatalf("%s: expected ErrUnreadable, got %v", name, err)
		}
	}
}
