package docgen

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

// writePNG creates a w x h PNG at root/rel and returns its path.
func writePNG(t *testing.T, root, rel string, w, h int) string {
	t.Helper()
	return writeImage(t, root, rel, w, h, func(f *os.File, img image.Image) error { return png.Encode(f, img) })
}

func writeBMP(t *testing.T, root, rel string, w, h int) string {
	t.Helper()
	return writeImage(t, root, rel, w, h, func(f *os.File, img image.Image) error { return bmp.Encode(f, img) })
}

func writeImage(t *testing.T, root, rel string, w, h int, enc func(*os.File, image.Image) error) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := enc(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}
