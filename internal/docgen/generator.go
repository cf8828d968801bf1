package docgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// Artifacts are the files produced for one specification.
type Artifacts struct {
	Docx []byte
	PDF  []byte
}

// Generator runs extract, bind and convert for one set of values.
type Generator struct {
	extractor *Extractor
	binder    *Binder
	converter Converter
	tempRoot  string
	timeout   time.Duration
	log       *zap.Logger
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*Generator)

// WithTempRoot places the per-call scratch directories below dir.
func WithTempRoot(dir string) GeneratorOption {
	return func(g *Generator) { g.tempRoot = dir }
}

// WithConvertTimeout bounds each converter call; zero means no limit.
func WithConvertTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

func NewGenerator(extractor *Extractor, binder *Binder, converter Converter, log *zap.Logger, opts ...GeneratorOption) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Generator{
		extractor: extractor,
		binder:    binder,
		converter: converter,
		log:       log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Generate renders values into a Word document and its PDF. Nothing is
// left on disk: the scratch directory is removed whether or not it succeeds.
func (g *Generator) Generate(ctx context.Context, values map[string]any) (*Artifacts, error) {
	before, err := g.extractor.Extract(stringValue(values["change_before"]))
	if err != nil {
		return nil, err
	}
	after, err := g.extractor.Extract(stringValue(values["change_after"]))
	if err != nil {
		return nil, err
	}

	doc, err := g.binder.Bind(values, before, after)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(g.tempRoot, "docgen-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			g.log.Warn("scratch dir not removed", zap.String("dir", dir), zap.Error(err))
		}
	}()

	name := unsafeName.ReplaceAllString(stringValue(values["serial_number"]), "_")
	if name == "" || name == "." || name == ".." {
		name = "document"
	}
	docxPath := filepath.Join(dir, name+".docx")
	pdfPath := filepath.Join(dir, name+".pdf")

	if err := doc.SaveDocx(docxPath); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := g.converter.Convert(ctx, doc, docxPath, pdfPath); err != nil {
		return nil, err
	}
	g.log.Debug("document converted", zap.String("name", name), zap.Duration("took", time.Since(start)))

	docx, err := os.ReadFile(docxPath)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf: %v", ErrConversion, err)
	}
	return &Artifacts{Docx: docx, PDF: pdf}, nil
}

func stringValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
