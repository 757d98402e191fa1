package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
// Extracted text is intentionally omitted; it can be large and clients only
// need the classification outcome.
type DocumentResponse struct {
	ID               string     `json:"id"`
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"original_filename"`
	FileSize         int64      `json:"file_size"`
	MimeType         string     `json:"mime_type"`
	Status           string     `json:"status"`
	Category         string     `json:"category,omitempty"`
	Subcategory      string     `json:"subcategory,omitempty"`
	Summary          string     `json:"summary,omitempty"`
	Tags             []string   `json:"tags"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

func toResponse(doc Document) DocumentResponse {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	return DocumentResponse{
		ID:               doc.ID,
		Filename:         doc.FileName,
		OriginalFilename: doc.OriginalFilename,
		FileSize:         doc.SizeBytes,
		MimeType:         doc.MimeType,
		Status:           doc.Status,
		Category:         doc.Category,
		Subcategory:      doc.Subcategory,
		Summary:          doc.Summary,
		Tags:             tags,
		ErrorMessage:     doc.ErrorMessage,
		UploadedAt:       doc.UploadedAt,
		ProcessedAt:      doc.ProcessedAt,
	}
}
