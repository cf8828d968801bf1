package docgen

import "context"

// Converter produces pdfPath from a bound document. docxPath already holds
// the Word package when Convert is called. Implementations are synchronous
// and must not leave pdfPath behind on failure.
type Converter interface {
	Convert(ctx context.Context, doc *Document, docxPath, pdfPath string) error
}

// Converter backends selectable from configuration.
const (
	BackendOffice = "office"
	BackendChrome = "chrome"
)
