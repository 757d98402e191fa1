package classify

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

type stubLLM struct {
	response string
	err      error
	prompt   string
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestCategorizeParsesModelReply(t *testing.T) {
	stub := &stubLLM{response: `{
		"category": "Finance",
		"subcategory": "Invoice",
		"summary": "An invoice for consulting services.",
		"tags": ["invoice", "consulting", "payment"]
	}`}
	c := &Classifier{LLM: stub}

	result, err := c.Categorize(context.Background(), "Invoice #1042", "invoice.pdf")
	if err != nil {
		t.Fatalf("categorize: %v", err)
	}
	want := Result{
		Category:    "Finance",
		Subcategory: "Invoice",
		Summary:     "An invoice for consulting services.",
		Tags:        []string{"invoice", "consulting", "payment"},
	}
	if !reflect.DeepEqual(result, want) {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCategorizeFallbackOnMalformedReply(t *testing.T) {
	for name, reply := range map[string]string{
		"prose":        "This document looks like an invoice.",
		"fenced":       "```json\n{\"category\": \"Finance\"}\n```",
		"empty":        "",
		"partial json": `{"category": "Finance", `,
	} {
		c := &Classifier{LLM: &stubLLM{response: reply}}
		result, err := c.Categorize(context.Background(), "text", "doc.pdf")
		if err != nil {
			t.Fatalf("%s: categorize: %v", name, err)
		}
		if !reflect.DeepEqual(result, Fallback()) {
			t.Fatalf("%s: expected fallback, got %+v", name, result)
		}
	}
}

func TestCategorizeFallbackShape(t *testing.T) {
	fb := Fallback()
	if fb.Category != "Other" || fb.Subcategory != "Unknown" {
		t.Fatalf("unexpected fallback: %+v", fb)
	}
	if fb.Summary != "Automatic categorization could not parse the AI response." {
		t.Fatalf("unexpected fallback summary: %q", fb.Summary)
	}
	if fb.Tags == nil || len(fb.Tags) != 0 {
		t.Fatalf("expected empty tags slice, got %#v", fb.Tags)
	}
}

func TestCategorizePropagatesTransportError(t *testing.T) {
	transportErr := errors.New("openai request: connection refused")
	c := &Classifier{LLM: &stubLLM{err: transportErr}}

	_, err := c.Categorize(context.Background(), "text", "doc.pdf")
	if !errors.Is(err, transportErr) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestCategorizeNilTagsBecomeEmptySlice(t *testing.T) {
	c := &Classifier{LLM: &stubLLM{response: `{"category": "Legal", "subcategory": "Contract", "summary": "A contract."}`}}

	result, err := c.Categorize(context.Background(), "text", "doc.pdf")
	if err != nil {
		t.Fatalf("categorize: %v", err)
	}
	if result.Tags == nil || len(result.Tags) != 0 {
		t.Fatalf("expected empty tags slice, got %#v", result.Tags)
	}
}

func TestBuildPromptTruncatesText(t *testing.T) {
	long := strings.Repeat("a", maxTextChars+500)
	capped := BuildPrompt(long, "big.pdf")
	exact := BuildPrompt(strings.Repeat("a", maxTextChars), "big.pdf")
	if capped != exact {
		t.Fatalf("expected document text capped at %d characters", maxTextChars)
	}
	if !strings.Contains(capped, "Filename: big.pdf") {
		t.Fatalf("prompt missing filename")
	}
	for _, category := range Categories {
		if !strings.Contains(capped, category) {
			t.Fatalf("prompt missing category %s", category)
		}
	}
}

func TestBuildPromptTruncatesOnRuneBoundaries(t *testing.T) {
	// Multibyte text counts characters, not bytes, and never splits a rune.
	long := strings.Repeat("é", maxTextChars+500)
	capped := BuildPrompt(long, "notes.pdf")
	exact := BuildPrompt(strings.Repeat("é", maxTextChars), "notes.pdf")
	if capped != exact {
		t.Fatalf("expected document text capped at %d characters", maxTextChars)
	}
	if !utf8.ValidString(capped) {
		t.Fatalf("prompt contains a split rune")
	}
}
