package documents

import "errors"

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("only PDF files are accepted")
	ErrPayloadTooLarge = errors.New("file exceeds the size limit")
)
