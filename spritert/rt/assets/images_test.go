package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeImage(t *testing.T, path string, encode func(f *os.File, img image.Image) error) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(2, 1, color.NRGBA{B: 255, A: 255})

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, encode(f, img))
}

func TestDir_LoadImage(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "tiles.png"), func(f *os.File, img image.Image) error { return png.Encode(f, img) })
	writeImage(t, filepath.Join(root, "tiles.bmp"), func(f *os.File, img image.Image) error { return bmp.Encode(f, img) })

	for _, name := range []string{"tiles.png", "tiles.bmp"} {
		t.Run(name, func(t *testing.T) {
			rgba, err := Dir{Root: root}.LoadImage(name)
			require.NoError(t, err)
			assert.Equal(t, 3, rgba.Rect.Dx())
			assert.Equal(t, 2, rgba.Rect.Dy())
			assert.Equal(t, 12, rgba.Stride)
			assert.Equal(t, color.RGBA{R: 255, A: 255}, rgba.RGBAAt(0, 0))
			assert.Equal(t, color.RGBA{B: 255, A: 255}, rgba.RGBAAt(2, 1))
		})
	}
}

func TestDir_LoadImageErrors(t *testing.T) {
	root := t.TempDir()
	_, err := Dir{Root: root}.LoadImage("missing.png")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(filepath.Join(root, "junk.png"), []byte("not an image"), 0o644))
	_, err = Dir{Root: root}.LoadImage("junk.png")
	assert.ErrorContains(t, err, "decode")
}

func TestToRGBA_SubImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.SetRGBA(2, 2, color.RGBA{G: 200, A: 255})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))

	out := ToRGBA(sub)
	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Rect)
	assert.Equal(t, 8, out.Stride)
	assert.Equal(t, color.RGBA{G: 200, A: 255}, out.RGBAAt(0, 0))

	assert.Same(t, src, ToRGBA(src))
}
