package docgen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

// Extractor converts a Markdown narrative into content blocks.
type Extractor struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	images *ImageResolver
	log    *zap.Logger
}

// NewExtractor wires the Markdown renderer, the sanitiser and the image resolver.
// Diagnostics about skipped images go to log.
func NewExtractor(images *ImageResolver, log *zap.Logger) *Extractor {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(
			html.WithUnsafe(), // raw HTML from the editor, cleaned by bluemonday below
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowElements("table", "thead", "tbody", "tr", "th", "td")

	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{md: md, policy: policy, images: images, log: log}
}

// Extract walks the top-level elements of the rendered narrative:
// tables become one pipe-joined text block, paragraphs and divs yield a
// block per direct child, everything else is ignored. Images that cannot be
// resolved or decoded are logged and skipped.
func (x *Extractor) Extract(markdown string) ([]Block, error) {
	blocks := []Block{}
	if strings.TrimSpace(markdown) == "" {
		x.log.Debug("narrative is empty")
		return blocks, nil
	}

	var buf bytes.Buffer
	if err := x.md.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarkdown, err)
	}
	safe := x.policy.SanitizeBytes(buf.Bytes())

	nodes, err := parseBody(string(safe))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarkdown, err)
	}
	x.reportStripped(buf.String(), nodes)

	for _, n := range nodes {
		el, ok := n.(*Element)
		if !ok {
			continue
		}
		switch el.Tag {
		case "table":
			blocks = append(blocks, tableBlock(el))
		case "p", "div":
			blocks = append(blocks, x.paragraphBlocks(el)...)
		}
	}
	return blocks, nil
}

func (x *Extractor) paragraphBlocks(el *Element) []Block {
	var out []Block
	for _, child := range el.Children {
		switch c := child.(type) {
		case *Element:
			if c.Tag == "img" {
				src, ok := c.Attr("src")
				if !ok || strings.TrimSpace(src) == "" {
					x.log.Warn("image skipped, no usable src")
					continue
				}
				if b := x.imageBlock(src); b != nil {
					out = append(out, b)
				}
				continue
			}
			if t := strings.TrimSpace(textContent(c)); t != "" {
				out = append(out, &TextBlock{Text: t})
			}
		case *Text:
			if t := strings.TrimSpace(c.Value); t != "" {
				out = append(out, &TextBlock{Text: t})
			}
		}
	}
	return out
}

// reportStripped logs every image in the rendered HTML that the sanitiser
// removed or left without a src.
func (x *Extractor) reportStripped(rendered string, kept []Node) {
	raw, err := parseBody(rendered)
	if err != nil {
		return
	}
	survivors := make(map[string]int)
	for _, src := range imageSources(kept) {
		survivors[src]++
	}
	for _, src := range imageSources(raw) {
		if survivors[src] > 0 {
			survivors[src]--
			continue
		}
		x.log.Warn("image skipped", zap.String("src", src), zap.Error(ErrImage),
			zap.String("reason", "removed by sanitiser"))
	}
}

func imageSources(nodes []Node) []string {
	var srcs []string
	for _, img := range findAll(&Element{Children: nodes}, "img") {
		src, _ := img.Attr("src")
		srcs = append(srcs, src)
	}
	return srcs
}

func (x *Extractor) imageBlock(src string) Block {
	if x.images == nil {
		x.log.Warn("image skipped, no resolver configured", zap.String("src", src))
		return nil
	}
	img, err := x.images.Load(src)
	if err != nil {
		x.log.Warn("image skipped", zap.String("src", src), zap.Error(err))
		return nil
	}
	x.log.Debug("image embedded",
		zap.String("path", img.Source),
		zap.Float64("width_mm", img.WidthMM),
	)
	return &ImageBlock{Image: img}
}

// tableBlock renders the header row, one "---" per header cell, then the body rows.
func tableBlock(table *Element) *TextBlock {
	var rows [][]string
	var lines []string
	for i, tr := range findAll(table, "tr") {
		var cells []string
		for _, cell := range findAll(tr, "td", "th") {
			cells = append(cells, strings.TrimSpace(textContent(cell)))
		}
		rows = append(rows, cells)
		lines = append(lines, strings.Join(cells, " | "))
		if i == 0 {
			sep := make([]string, len(cells))
			for j := range sep {
				sep[j] = "---"
			}
			lines = append(lines, strings.Join(sep, " | "))
		}
	}
	if rows == nil {
		rows = [][]string{}
	}
	return &TextBlock{Text: strings.Join(lines, "\n"), Rows: rows}
}
