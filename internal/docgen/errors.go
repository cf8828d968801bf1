package docgen

import "errors"

// Sentinel errors for the generation pipeline.
var (
	ErrTemplate    = errors.New("document template is invalid")
	ErrPlaceholder = errors.New("template references an unknown placeholder")
	ErrConversion  = errors.New("PDF conversion failed")
	ErrImage       = errors.New("image cannot be embedded")
	ErrMarkdown    = errors.New("markdown rendering failed")
)
