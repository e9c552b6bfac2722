package raster

import (
	"image"
	"image/color"
	"math"
	"testing"

	"sticker-composer/internal/transform"

	"github.com/stretchr/testify/assert"
)

var (
	white = color.NRGBA{255, 255, 255, 255}
	red   = color.NRGBA{255, 0, 0, 255}
)

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func isRed(c color.NRGBA) bool   { return c.R > 200 && c.G < 60 && c.B < 60 }
func isWhite(c color.NRGBA) bool { return c.R > 240 && c.G > 240 && c.B > 240 }

func TestComposeWithoutLayerCopiesBase(t *testing.T) {
	base := fill(20, 10, white)
	out := Compose(base, nil)

	assert.Equal(t, base.Bounds(), out.Bounds())
	assert.Equal(t, white, out.NRGBAAt(3, 3))
	assert.NotSame(t, base, out)
}

func TestComposeCentersSticker(t *testing.T) {
	out := Compose(fill(100, 100, white), &Layer{Image: fill(10, 10, red), Placement: transform.Identity})

	assert.True(t, isRed(out.NRGBAAt(50, 50)))
	assert.True(t, isWhite(out.NRGBAAt(10, 10)))
	assert.Equal(t, uint8(255), out.NRGBAAt(50, 50).A)
}

func TestComposeTranslates(t *testing.T) {
	p := transform.Placement{TranslateX: 30, TranslateY: -20, Scale: 1}
	out := Compose(fill(100, 100, white), &Layer{Image: fill(10, 10, red), Placement: p})

	assert.True(t, isRed(out.NRGBAAt(80, 30)))
	assert.True(t, isWhite(out.NRGBAAt(50, 50)))
}

func TestComposeScalesAroundCenter(t *testing.T) {
	p := transform.Placement{Scale: 2}
	out := Compose(fill(100, 100, white), &Layer{Image: fill(10, 10, red), Placement: p})

	assert.True(t, isRed(out.NRGBAAt(58, 50)))
	assert.True(t, isWhite(out.NRGBAAt(63, 50)))
}

func TestComposeRotates(t *testing.T) {
	p := transform.Placement{Scale: 1, Rotation: math.Pi / 4}
	out := Compose(fill(100, 100, white), &Layer{Image: fill(10, 10, red), Placement: p})

	assert.True(t, isRed(out.NRGBAAt(55, 50)))
	assert.True(t, isWhite(out.NRGBAAt(54, 54)))
}

func TestComposeFitsToLayerSize(t *testing.T) {
	out := Compose(fill(100, 100, white), &Layer{Image: fill(10, 5, red), Placement: transform.Identity, Size: 20})

	// 10×5 fitted into a 20 box becomes 20×10, letterboxed vertically.
	assert.True(t, isRed(out.NRGBAAt(42, 50)))
	assert.True(t, isWhite(out.NRGBAAt(50, 42)))
}

func TestComposeBlendsTranslucentSticker(t *testing.T) {
	half := color.NRGBA{0, 0, 0, 128}
	out := Compose(fill(40, 40, white), &Layer{Image: fill(10, 10, half), Placement: transform.Identity})

	c := out.NRGBAAt(20, 20)
	assert.InDelta(t, 127, c.R, 3)
	assert.Equal(t, uint8(255), c.A)
}

func TestStickerBounds(t *testing.T) {
	canvas := image.Rect(0, 0, 100, 100)
	sticker := image.Rect(0, 0, 10, 10)

	assert.Equal(t, image.Rect(45, 45, 55, 55), StickerBounds(canvas, sticker, transform.Identity))

	p := transform.Placement{TranslateX: 10, Scale: 3}
	assert.Equal(t, image.Rect(45, 35, 75, 65), StickerBounds(canvas, sticker, p))
}
