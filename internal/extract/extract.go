package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable marks byte streams that cannot be parsed as a PDF at all.
var ErrUnreadable = errors.New("unreadable document")

// ExtractTextFromBytes pulls plain text from an in-memory PDF payload.
// Pages are walked in order, pages without non-whitespace text are dropped,
// and the survivors are joined with a blank line. An empty string is a
// valid result (e.g. a scanned image-only document).
func ExtractTextFromBytes(data []byte) (text string, err error) {
	defer func() {
		// The pdf parser panics on some malformed cross-reference tables.
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages the parser cannot decode.
			continue
		}
		if trimmed := strings.TrimSpace(pageText); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
