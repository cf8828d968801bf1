package docgen

import (
	"archive/zip"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"text/template"
)

//go:embed all:templates/default
var defaultParts embed.FS

//go:embed templates/twin.html
var twinSource string

const (
	documentPart     = "word/document.xml"
	documentRelsPart = "word/_rels/document.xml.rels"
	contentTypesPart = "[Content_Types].xml"
)

// Fields lists the generation input keys the template may reference.
// Keys missing from the caller's values are bound as empty strings.
var Fields = []string{
	"serial_number", "theme", "applicant", "applicant_phone", "station",
	"tccs_info", "start_date", "end_date", "package", "lot_number",
	"equipment_type", "change_before", "change_after", "data_needs",
}

const (
	keyBeforeSections = "change_before_sections"
	keyAfterSections  = "change_after_sections"
)

// Template is a parsed .docx package whose main document part is a
// text/template.
type Template struct {
	parts    map[string][]byte
	document *template.Template
}

// DefaultTemplate returns the template compiled into the binary.
func DefaultTemplate() (*Template, error) {
	root, err := fs.Sub(defaultParts, "templates/default")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	parts := map[string][]byte{}
	err = fs.WalkDir(root, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(root, path)
		if err != nil {
			return err
		}
		parts[path] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return newTemplate(parts)
}

// LoadTemplate reads a .docx file that follows the default template schema.
func LoadTemplate(path string) (*Template, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrTemplate, path, err)
	}
	defer zr.Close()

	parts := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplate, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplate, f.Name, err)
		}
		parts[f.Name] = data
	}
	return newTemplate(parts)
}

// OpenTemplate loads path when set, the embedded template otherwise.
func OpenTemplate(path string) (*Template, error) {
	if path == "" {
		return DefaultTemplate()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return LoadTemplate(path)
}

func newTemplate(parts map[string][]byte) (*Template, error) {
	for _, required := range []string{documentPart, documentRelsPart, contentTypesPart} {
		if _, ok := parts[required]; !ok {
			return nil, fmt.Errorf("%w: missing part %s", ErrTemplate, required)
		}
	}

	doc, err := template.New(documentPart).
		Option("missingkey=error").
		Funcs(template.FuncMap{"blocks": func(any) (string, error) { return "", nil }}).
		Parse(string(parts[documentPart]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return &Template{parts: parts, document: doc}, nil
}

// isMissingKey matches the text/template error for missingkey=error.
func isMissingKey(err error) bool {
	return strings.Contains(err.Error(), "map has no entry for key")
}
