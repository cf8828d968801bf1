package docgen

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strconv"
)

type twinField struct {
	Label string
	Value string
}

type twinBlock struct {
	Text    string
	Rows    [][]string
	Src     htmltemplate.URL
	WidthMM string
}

type twinView struct {
	SerialNumber string
	Fields       []twinField
	Before       []twinBlock
	After        []twinBlock
	DataNeeds    string
}

var twinLabels = []struct{ label, key string }{
	{"編號", "serial_number"},
	{"主題", "theme"},
	{"申請人", "applicant"},
	{"聯絡電話", "applicant_phone"},
	{"適用站別", "station"},
	{"TCCS", "tccs_info"},
	{"封裝型態", "package"},
	{"批號", "lot_number"},
	{"機台種類", "equipment_type"},
}

// renderTwin produces the HTML used by converters that print from a browser.
func (b *Binder) renderTwin(ctx map[string]any, before, after []Block) ([]byte, error) {
	str := func(k string) string {
		if v, ok := ctx[k].(xmlText); ok {
			return string(v)
		}
		return ""
	}

	view := twinView{
		SerialNumber: str("serial_number"),
		Before:       twinBlocks(before),
		After:        twinBlocks(after),
		DataNeeds:    str("data_needs"),
	}
	for _, l := range twinLabels {
		view.Fields = append(view.Fields, twinField{Label: l.label, Value: str(l.key)})
	}
	view.Fields = append(view.Fields, twinField{
		Label: "有效期間",
		Value: str("start_date") + " ~ " + str("end_date"),
	})

	var buf bytes.Buffer
	if err := b.twin.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("%w: html: %v", ErrTemplate, err)
	}
	return buf.Bytes(), nil
}

func twinBlocks(blocks []Block) []twinBlock {
	out := make([]twinBlock, 0, len(blocks))
	for _, blk := range blocks {
		switch blk := blk.(type) {
		case *TextBlock:
			out = append(out, twinBlock{Text: blk.Text, Rows: blk.Rows})
		case *ImageBlock:
			out = append(out, twinBlock{
				Src:     htmltemplate.URL(blk.Image.dataURI()),
				WidthMM: strconv.FormatFloat(blk.Image.WidthMM, 'f', 2, 64),
			})
		}
	}
	return out
}
