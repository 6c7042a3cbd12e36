// Package assets resolves and decodes image files for texture upload.
package assets

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Dir loads images relative to Root.
type Dir struct {
	Root string
}

// LoadImage decodes path (relative to Root unless absolute) into tightly
// packed RGBA8.
func (d Dir) LoadImage(path string) (*image.RGBA, error) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(d.Root, path)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", full, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decode %s: empty %s image", full, format)
	}
	return ToRGBA(img), nil
}

// ToRGBA returns img as an *image.RGBA with origin (0, 0) and Stride 4*width,
// copying only when img is not already in that form.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
