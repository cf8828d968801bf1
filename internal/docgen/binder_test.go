package docgen

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestBinder(t *testing.T) *Binder {
	t.Helper()
	tmpl, err := DefaultTemplate()
	if err != nil {
		t.Fatalf("DefaultTemplate: %v", err)
	}
	b, err := NewBinder(tmpl)
	if err != nil {
		t.Fatalf("NewBinder: %v", err)
	}
	return b
}

func readParts(t *testing.T, doc *Document) map[string]string {
	t.Helper()
	var buf bytes.Buffer
	if err := doc.WriteDocx(&buf); err != nil {
		t.Fatalf("WriteDocx: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	parts := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		parts[f.Name] = string(data)
	}
	return parts
}

func TestBinder_Values(t *testing.T) {
	t.Parallel()

	b := newTestBinder(t)
	doc, err := b.Bind(map[string]any{
		"serial_number": "PE1140301",
		"theme":         "Cu wire <trial> & review",
		"data_needs":    "line one\nline two",
		"station":       nil,
	}, nil, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	body := readParts(t, doc)[documentPart]
	for _, want := range []string{
		"PE1140301",
		"Cu wire &lt;trial&gt; &amp; review",
		"line one" + runBreak + "line two",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}
	if strings.Contains(body, "{{") || strings.Contains(body, "<no value>") {
		t.Error("document.xml has unrendered placeholders")
	}
	if !bytes.Contains(doc.HTML, []byte("Cu wire &lt;trial&gt; &amp; review")) {
		t.Error("HTML twin missing escaped theme")
	}
}

func TestBinder_EmptySections(t *testing.T) {
	t.Parallel()

	b := newTestBinder(t)
	doc, err := b.Bind(map[string]any{"theme": "x"}, []Block{}, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	parts := readParts(t, doc)
	body := parts[documentPart]

	if n := strings.Count(body, emptyParagraph); n != 2 {
		t.Errorf("empty paragraphs = %d, want 2", n)
	}
	if strings.Contains(body, "<w:drawing>") {
		t.Error("unexpected drawing in empty document")
	}
	for name := range parts {
		if strings.HasPrefix(name, "word/media/") {
			t.Errorf("unexpected media part %s", name)
		}
	}
}

func TestBinder_Images(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePNG(t, root, "static/uploads/images/a.png", 192, 96)
	img, err := NewImageResolver(root).Load("/static/uploads/images/a.png")
	if err != nil {
		t.Fatal(err)
	}

	b := newTestBinder(t)
	before := []Block{&TextBlock{Text: "see figure"}, &ImageBlock{Image: img}}
	after := []Block{&ImageBlock{Image: img}}

	doc, err := b.Bind(map[string]any{}, before, after)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	parts := readParts(t, doc)

	if _, ok := parts["word/media/image1.png"]; !ok {
		t.Error("missing word/media/image1.png")
	}
	if _, ok := parts["word/media/image2.png"]; !ok {
		t.Error("missing word/media/image2.png")
	}
	body := parts[documentPart]
	if strings.Index(body, `r:embed="rIdImg1"`) > strings.Index(body, `r:embed="rIdImg2"`) {
		t.Error("images not numbered in order of appearance")
	}
	if !strings.Contains(body, `<wp:extent cx="1828800" cy="914400"/>`) {
		t.Error("drawing extent not sized from image")
	}
	if !strings.Contains(parts[documentRelsPart], `Id="rIdImg2"`) {
		t.Error("relationship for second image missing")
	}
	if strings.Count(parts[contentTypesPart], `Extension="png"`) != 1 {
		t.Errorf("content types: %s", parts[contentTypesPart])
	}
	if !bytes.Contains(doc.HTML, []byte("data:image/png;base64,")) {
		t.Error("HTML twin has no inline image")
	}
}

func TestBinder_Deterministic(t *testing.T) {
	t.Parallel()

	b := newTestBinder(t)
	values := map[string]any{"serial_number": "PE1140301", "theme": "same"}
	blocks := []Block{&TextBlock{Text: "a | b\n--- | ---\n1 | 2", Rows: [][]string{{"a", "b"}, {"1", "2"}}}}

	render := func() []byte {
		doc, err := b.Bind(values, blocks, blocks)
		if err != nil {
			t.Fatalf("Bind: %v", err)
		}
		var buf bytes.Buffer
		if err := doc.WriteDocx(&buf); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}

	if !bytes.Equal(render(), render()) {
		t.Error("identical input produced different packages")
	}
}

func TestBinder_UnknownPlaceholder(t *testing.T) {
	t.Parallel()

	base, err := DefaultTemplate()
	if err != nil {
		t.Fatal(err)
	}
	parts := map[string][]byte{}
	for k, v := range base.parts {
		parts[k] = v
	}
	parts[documentPart] = []byte(strings.Replace(string(parts[documentPart]), "{{.theme}}", "{{.subject}}", 1))

	tmpl, err := newTemplate(parts)
	if err != nil {
		t.Fatalf("newTemplate: %v", err)
	}
	b, err := NewBinder(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Bind(map[string]any{"theme": "x"}, nil, nil); !errors.Is(err, ErrPlaceholder) {
		t.Errorf("Bind error = %v, want ErrPlaceholder", err)
	}
}

func TestLoadTemplate(t *testing.T) {
	t.Parallel()

	base, err := DefaultTemplate()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "custom.docx")
	var buf bytes.Buffer
	if err := writePackage(&buf, base.parts); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	tmpl, err := OpenTemplate(path)
	if err != nil {
		t.Fatalf("OpenTemplate: %v", err)
	}
	if len(tmpl.parts) != len(base.parts) {
		t.Errorf("loaded %d parts, want %d", len(tmpl.parts), len(base.parts))
	}

	if _, err := OpenTemplate(filepath.Join(t.TempDir(), "absent.docx")); !errors.Is(err, ErrTemplate) {
		t.Errorf("OpenTemplate(absent) error = %v, want ErrTemplate", err)
	}

	broken := map[string][]byte{documentPart: []byte("{{.theme}}")}
	if _, err := newTemplate(broken); !errors.Is(err, ErrTemplate) {
		t.Errorf("newTemplate without rels error = %v, want ErrTemplate", err)
	}
}
