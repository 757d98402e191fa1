package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"docmanager-backend/internal/llm"
)

// Categories is the closed set the model must choose from.
var Categories = []string{
	"Legal",
	"Finance",
	"Medical",
	"Technical",
	"HR",
	"Academic",
	"Correspondence",
	"Other",
}

// Send only the first N characters — enough context, keeps token cost predictable.
const maxTextChars = 8000

const fallbackSummary = "Automatic categorization could not parse the AI response."

// Result is the structured classification for one document.
type Result struct {
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"`
}

// Fallback is the safe default used when the model reply is not valid JSON.
func Fallback() Result {
	return Result{
		Category:    "Other",
		Subcategory: "Unknown",
		Summary:     fallbackSummary,
		Tags:        []string{},
	}
}

// Classifier asks the language model to categorize extracted document text.
type Classifier struct {
	LLM llm.Client
}

// Categorize sends the document text and filename to the model and parses
// the structured reply. A malformed reply downgrades to Fallback() rather
// than failing; transport errors from the provider propagate to the caller.
func (c *Classifier) Categorize(ctx context.Context, text, fileName string) (Result, error) {
	if c.LLM == nil {
		return Result{}, llm.ErrNotConfigured
	}

	raw, err := c.LLM.Complete(ctx, BuildPrompt(text, fileName))
	if err != nil {
		return Result{}, fmt.Errorf("categorize %s: %w", fileName, err)
	}

	var result Result
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err != nil {
		return Fallback(), nil
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	return result, nil
}

// BuildPrompt constructs the classification instruction for one document.
func BuildPrompt(text, fileName string) string {
	snippet := text
	if len(snippet) > maxTextChars {
		if runes := []rune(snippet); len(runes) > maxTextChars {
			snippet = string(runes[:maxTextChars])
		}
	}

	var b strings.Builder
	b.WriteString("You are a document classification assistant.\n")
	b.WriteString("Analyze the document below and return a JSON object with exactly these fields:\n")
	b.WriteString(`- "category": one of [` + strings.Join(Categories, ", ") + "]\n")
	b.WriteString(`- "subcategory": a specific label within the category (e.g. "Invoice", "Employment Contract", "Lab Report")` + "\n")
	b.WriteString(`- "summary": 2-3 sentences describing what the document is about` + "\n")
	b.WriteString(`- "tags": an array of 3-5 lowercase keyword tags` + "\n\n")
	b.WriteString("Filename: " + fileName + "\n\n")
	b.WriteString("Document text:\n")
	b.WriteString(snippet)
	b.WriteString("\n\nRespond with only the JSON object - no markdown fences, no explanation.")
	return b.String()
}
