package docgen

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxImagePixels bounds width*height before an image is decoded.
const maxImagePixels = 40_000_000

// ImageResolver maps <img src> values to files below a root directory.
type ImageResolver struct {
	root      string
	maxPixels int
}

// NewImageResolver returns a resolver rooted at root, usually the
// directory that holds static/uploads/images.
func NewImageResolver(root string) *ImageResolver {
	return &ImageResolver{root: filepath.Clean(root), maxPixels: maxImagePixels}
}

// Resolve turns an image src into a local path. A src that starts with "/"
// and contains "/static/" is taken from the static segment on; anything else
// is joined to the root with leading slashes removed.
func (r *ImageResolver) Resolve(src string) (string, error) {
	if strings.Contains(src, "://") || strings.HasPrefix(src, "data:") {
		return "", fmt.Errorf("%w: remote or inline source %q", ErrImage, src)
	}

	rel := strings.TrimLeft(src, "/")
	if strings.HasPrefix(src, "/") {
		if i := strings.Index(src, "/static/"); i != -1 {
			rel = src[i+1:]
		}
	}

	path := filepath.Join(r.root, filepath.FromSlash(rel))
	within, err := filepath.Rel(r.root, path)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes image root", ErrImage, src)
	}
	return path, nil
}

// Load resolves src, decodes the file and sizes it for embedding.
func (r *ImageResolver) Load(src string) (*Image, error) {
	path, err := r.Resolve(src)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImage, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImage, path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > r.maxPixels/cfg.Height {
		return nil, fmt.Errorf("%w: %s: %dx%d exceeds %d pixels", ErrImage, path, cfg.Width, cfg.Height, r.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImage, path, err)
	}
	bounds := img.Bounds()

	out := &Image{
		Source:   path,
		Data:     data,
		Format:   format,
		WidthPx:  bounds.Dx(),
		HeightPx: bounds.Dy(),
	}

	// Word ignores EXIF orientation, so rotated JPEGs are re-encoded upright.
	rotated := cfg.Width != bounds.Dx() || cfg.Height != bounds.Dy()
	switch {
	case format == "png" || format == "gif":
	case format == "jpeg" && !rotated:
	case format == "jpeg":
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(92)); err != nil {
			return nil, fmt.Errorf("%w: encode %s: %v", ErrImage, path, err)
		}
		out.Data = buf.Bytes()
	default:
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("%w: encode %s: %v", ErrImage, path, err)
		}
		out.Data = buf.Bytes()
		out.Format = "png"
	}

	out.WidthMM = ScaleWidth(out.WidthPx)
	return out, nil
}
