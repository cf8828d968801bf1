package docgen

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

const (
	relTypeImage = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	runBreak     = `</w:t><w:br/><w:t xml:space="preserve">`
)

// zipEpoch is stamped on every entry so identical input gives identical bytes.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// xmlText is a bound value; printing it yields escaped run text with
// newlines turned into line breaks.
type xmlText string

func (t xmlText) String() string {
	return escapeRunText(string(t))
}

func escapeRunText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	var buf bytes.Buffer
	for i, line := range lines {
		if i > 0 {
			buf.WriteString(runBreak)
		}
		_ = xml.EscapeText(&buf, []byte(line))
	}
	return buf.String()
}

func textParagraph(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + escapeRunText(text) + `</w:t></w:r></w:p>`
}

const emptyParagraph = `<w:p/>`

// drawingParagraph emits an inline picture referencing relID.
func drawingParagraph(im *Image, docPrID int, name, relID string) string {
	cx, cy := im.Extent()
	return fmt.Sprintf(`<w:p><w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[1]d" cy="%[2]d"/>`+
		`<wp:docPr id="%[3]d" name="Picture %[3]d"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="%[3]d" name="%[4]s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%[5]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`,
		cx, cy, docPrID, name, relID)
}

type relationships struct {
	XMLName xml.Name       `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Items   []relationship `xml:"Relationship"`
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

type contentTypes struct {
	XMLName   xml.Name          `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []contentDefault  `xml:"Default"`
	Overrides []contentOverride `xml:"Override"`
}

type contentDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type contentOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// mediaPart is an image added to the package while binding.
type mediaPart struct {
	relID string
	name  string // file name under word/media
	image *Image
}

func addImageRelationships(raw []byte, media []mediaPart) ([]byte, error) {
	var rels relationships
	if err := xml.Unmarshal(raw, &rels); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplate, documentRelsPart, err)
	}
	for _, m := range media {
		rels.Items = append(rels.Items, relationship{ID: m.relID, Type: relTypeImage, Target: "media/" + m.name})
	}
	return marshalPart(rels)
}

func addImageContentTypes(raw []byte, media []mediaPart) ([]byte, error) {
	var ct contentTypes
	if err := xml.Unmarshal(raw, &ct); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplate, contentTypesPart, err)
	}
	have := map[string]bool{}
	for _, d := range ct.Defaults {
		have[strings.ToLower(d.Extension)] = true
	}
	for _, m := range media {
		ext := m.image.Ext()
		if have[ext] {
			continue
		}
		have[ext] = true
		ct.Defaults = append(ct.Defaults, contentDefault{Extension: ext, ContentType: m.image.MIME()})
	}
	return marshalPart(ct)
}

func marshalPart(v any) ([]byte, error) {
	out, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return append([]byte(xml.Header), out...), nil
}

// writePackage zips parts in name order with a fixed timestamp.
func writePackage(w io.Writer, parts map[string][]byte) error {
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(w)
	for _, name := range names {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		})
		if err != nil {
			return err
		}
		if _, err := fw.Write(parts[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}
