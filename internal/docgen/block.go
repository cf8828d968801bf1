package docgen

import (
	"encoding/base64"
	"math"
)

// Block is one unit of narrative content: *TextBlock or *ImageBlock.
type Block interface {
	block()
}

// TextBlock is a paragraph of plain text. Tables are flattened into a
// TextBlock whose Text is the pipe rendering; Rows keeps the cells.
type TextBlock struct {
	Text string
	Rows [][]string
}

// ImageBlock is an inline picture sized in millimetres.
type ImageBlock struct {
	Image *Image
}

func (*TextBlock) block()  {}
func (*ImageBlock) block() {}

// IsTable reports whether the block came from a Markdown table
func (b *TextBlock) IsTable() bool {
	return b.Rows != nil
}

const (
	emuPerMM   = 36000
	maxWidthMM = 130.0
	screenDPI  = 96.0
	mmPerInch  = 25.4
)

// Image is a decoded picture ready to embed.
type Image struct {
	Source   string // resolved file path
	Data     []byte // encoded bytes in Format
	Format   string // png, jpeg or gif
	WidthPx  int
	HeightPx int
	WidthMM  float64
}

// ScaleWidth converts a pixel width to millimetres at 96 DPI, capped at 130 mm.
func ScaleWidth(px int) float64 {
	return math.Min(float64(px)*mmPerInch/screenDPI, maxWidthMM)
}

// HeightMM keeps the aspect ratio of the source image.
func (im *Image) HeightMM() float64 {
	if im.WidthPx == 0 {
		return 0
	}
	return im.WidthMM * float64(im.HeightPx) / float64(im.WidthPx)
}

// Extent returns the drawing size in EMU.
func (im *Image) Extent() (cx, cy int64) {
	return int64(math.Round(im.WidthMM * emuPerMM)), int64(math.Round(im.HeightMM() * emuPerMM))
}

// Ext is the file extension used inside the package.
func (im *Image) Ext() string {
	if im.Format == "jpeg" {
		return "jpg"
	}
	return im.Format
}

// MIME type of Data.
func (im *Image) MIME() string {
	return "image/" + im.Format
}

func (im *Image) dataURI() string {
	return "data:" + im.MIME() + ";base64," + base64.StdEncoding.EncodeToString(im.Data)
}
