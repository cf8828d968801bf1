package docgen

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	"strings"
)

// Document is a bound template: the .docx package parts plus an HTML
// rendering of the same content.
type Document struct {
	parts map[string][]byte
	HTML  []byte
}

// WriteDocx writes the Word package.
func (d *Document) WriteDocx(w io.Writer) error {
	return writePackage(w, d.parts)
}

// SaveDocx writes the Word package to path.
func (d *Document) SaveDocx(path string) error {
	var buf bytes.Buffer
	if err := d.WriteDocx(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Binder fills a Template with form values and content blocks.
type Binder struct {
	tmpl *Template
	twin *htmltemplate.Template
}

func NewBinder(tmpl *Template) (*Binder, error) {
	twin, err := htmltemplate.New("twin").Parse(twinSource)
	if err != nil {
		return nil, fmt.Errorf("%w: html: %v", ErrTemplate, err)
	}
	return &Binder{tmpl: tmpl, twin: twin}, nil
}

// Bind renders the template. Every key in Fields is present in the context
// (nil and missing values bind as ""), the two section keys carry the block
// sequences. A placeholder outside that context fails with ErrPlaceholder.
func (b *Binder) Bind(values map[string]any, before, after []Block) (*Document, error) {
	ctx := bindContext(values)
	ctx[keyBeforeSections] = before
	ctx[keyAfterSections] = after

	r := &blockRenderer{}
	doc, err := b.tmpl.document.Clone()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	doc.Funcs(map[string]any{"blocks": r.render})

	var body bytes.Buffer
	if err := doc.Execute(&body, ctx); err != nil {
		if isMissingKey(err) {
			return nil, fmt.Errorf("%w: %v", ErrPlaceholder, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	parts := make(map[string][]byte, len(b.tmpl.parts)+len(r.media))
	for name, data := range b.tmpl.parts {
		parts[name] = data
	}
	parts[documentPart] = body.Bytes()

	if len(r.media) > 0 {
		rels, err := addImageRelationships(parts[documentRelsPart], r.media)
		if err != nil {
			return nil, err
		}
		types, err := addImageContentTypes(parts[contentTypesPart], r.media)
		if err != nil {
			return nil, err
		}
		parts[documentRelsPart] = rels
		parts[contentTypesPart] = types
		for _, m := range r.media {
			parts["word/media/"+m.name] = m.image.Data
		}
	}

	twin, err := b.renderTwin(ctx, before, after)
	if err != nil {
		return nil, err
	}
	return &Document{parts: parts, HTML: twin}, nil
}

func bindContext(values map[string]any) map[string]any {
	ctx := make(map[string]any, len(values)+len(Fields)+2)
	for k, v := range values {
		ctx[k] = bindValue(v)
	}
	for _, k := range Fields {
		if _, ok := ctx[k]; !ok {
			ctx[k] = xmlText("")
		}
	}
	return ctx
}

func bindValue(v any) any {
	switch v := v.(type) {
	case nil:
		return xmlText("")
	case xmlText:
		return v
	case string:
		return xmlText(v)
	case fmt.Stringer:
		return xmlText(v.String())
	case []Block:
		return v
	default:
		return xmlText(fmt.Sprint(v))
	}
}

// blockRenderer turns block sequences into body XML and collects the media
// they reference. Images are numbered in order of appearance.
type blockRenderer struct {
	media []mediaPart
}

const docPrBase = 1000

func (r *blockRenderer) render(v any) (string, error) {
	var blocks []Block
	switch v := v.(type) {
	case nil:
	case []Block:
		blocks = v
	default:
		return "", fmt.Errorf("blocks: unexpected %T", v)
	}
	if len(blocks) == 0 {
		return emptyParagraph, nil
	}

	var sb strings.Builder
	for _, blk := range blocks {
		switch blk := blk.(type) {
		case *TextBlock:
			sb.WriteString(textParagraph(blk.Text))
		case *ImageBlock:
			n := len(r.media) + 1
			m := mediaPart{
				relID: fmt.Sprintf("rIdImg%d", n),
				name:  fmt.Sprintf("image%d.%s", n, blk.Image.Ext()),
				image: blk.Image,
			}
			r.media = append(r.media, m)
			sb.WriteString(drawingParagraph(blk.Image, docPrBase+n, m.name, m.relID))
		default:
			return "", fmt.Errorf("blocks: unexpected block %T", blk)
		}
	}
	return sb.String(), nil
}
