// Package raster flattens a base photo and a placed sticker into one image.
package raster

import (
	"image"
	"math"

	"sticker-composer/internal/mathutil"
	"sticker-composer/internal/postprocess"
	"sticker-composer/internal/transform"

	"golang.org/x/image/draw"
)

// Layer is a sticker image with where and how large to draw it.
type Layer struct {
	Image     *image.NRGBA
	Placement transform.Placement
	// Size is the side of the square box the sticker is fitted into before
	// the placement scale applies. Zero draws it at native size.
	Size int
}

// Compose draws layer over base. The sticker's untranslated center sits on
// the canvas center. A nil layer or layer image returns a copy of base.
// The result always has its origin at (0, 0).
func Compose(base *image.NRGBA, layer *Layer) *image.NRGBA {
	b := base.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), postprocess.Premultiply(base), b.Min, draw.Src)

	if layer == nil || layer.Image == nil || layer.Image.Bounds().Empty() {
		return postprocess.Unpremultiply(canvas)
	}

	sticker := layer.Image
	if layer.Size > 0 {
		sticker = postprocess.FitSquare(sticker, layer.Size)
	}
	src := postprocess.Premultiply(sticker)

	m := StickerMatrix(canvas.Bounds(), src.Bounds(), layer.Placement)
	draw.BiLinear.Transform(canvas, m.Aff3(), src, src.Bounds(), draw.Over, nil)

	return postprocess.Unpremultiply(canvas)
}

// StickerMatrix maps sticker pixel coordinates to canvas coordinates.
func StickerMatrix(canvas, sticker image.Rectangle, p transform.Placement) mathutil.Mat3 {
	anchor := mathutil.Vec2{float64(canvas.Dx()) / 2, float64(canvas.Dy()) / 2}
	half := mathutil.Vec2{float64(sticker.Min.X) + float64(sticker.Dx())/2, float64(sticker.Min.Y) + float64(sticker.Dy())/2}
	return mathutil.Mat3Mul(p.Matrix(anchor), mathutil.Translate(-half[0], -half[1]))
}

// StickerBounds returns the canvas-space bounding box of the transformed
// sticker rectangle, rounded outward.
func StickerBounds(canvas, sticker image.Rectangle, p transform.Placement) image.Rectangle {
	m := StickerMatrix(canvas, sticker, p)
	corners := [4]mathutil.Vec2{
		{float64(sticker.Min.X), float64(sticker.Min.Y)},
		{float64(sticker.Max.X), float64(sticker.Min.Y)},
		{float64(sticker.Min.X), float64(sticker.Max.Y)},
		{float64(sticker.Max.X), float64(sticker.Max.Y)},
	}
	first := m.MulPoint(corners[0])
	minX, maxX, minY, maxY := first[0], first[0], first[1], first[1]
	for _, c := range corners[1:] {
		q := m.MulPoint(c)
		minX, maxX = min(minX, q[0]), max(maxX, q[0])
		minY, maxY = min(minY, q[1]), max(maxY, q[1])
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}
