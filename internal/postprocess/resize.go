package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Resize scales img to w×h with premultiplied-alpha-aware CatmullRom
// filtering. This prevents dark halo artifacts at transparent edges.
func Resize(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	if b.Dx() == w && b.Dy() == h && b.Min == (image.Point{}) {
		return img
	}

	premul := Premultiply(img)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)
	return Unpremultiply(dst)
}

// FitSquare scales img to fit inside a size×size square, keeping its aspect
// ratio, and centers it on a transparent canvas.
func FitSquare(img *image.NRGBA, size int) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, size, size))
	b := img.Bounds()
	if size <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return canvas
	}

	sc := float64(size) / float64(b.Dx())
	if s := float64(size) / float64(b.Dy()); s < sc {
		sc = s
	}
	dstW := max(1, int(float64(b.Dx())*sc+0.5))
	dstH := max(1, int(float64(b.Dy())*sc+0.5))

	scaled := Resize(img, dstW, dstH)
	offX := (size - dstW) / 2
	offY := (size - dstH) / 2
	draw.Copy(canvas, image.Pt(offX, offY), scaled, scaled.Bounds(), draw.Src, nil)
	return canvas
}

// Cover scales img to fill w×h entirely, keeping its aspect ratio and
// cropping the overflow evenly from both sides.
func Cover(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if w <= 0 || h <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return image.NewNRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	}

	sc := float64(w) / float64(b.Dx())
	if s := float64(h) / float64(b.Dy()); s > sc {
		sc = s
	}
	scaledW := max(w, int(float64(b.Dx())*sc+0.5))
	scaledH := max(h, int(float64(b.Dy())*sc+0.5))
	scaled := Resize(img, scaledW, scaledH)

	offX := (scaledW - w) / 2
	offY := (scaledH - h) / 2
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Copy(out, image.Point{}, scaled, image.Rect(offX, offY, offX+w, offY+h), draw.Src, nil)
	return out
}

// Premultiply converts straight alpha to premultiplied alpha.
func Premultiply(img *image.NRGBA) *image.RGBA {
	b := img.Bounds()
	premul := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := premul.PixOffset(x, y)
			a := float64(img.Pix[si+3]) / 255.0
			premul.Pix[di] = uint8(float64(img.Pix[si])*a + 0.5)
			premul.Pix[di+1] = uint8(float64(img.Pix[si+1])*a + 0.5)
			premul.Pix[di+2] = uint8(float64(img.Pix[si+2])*a + 0.5)
			premul.Pix[di+3] = img.Pix[si+3]
		}
	}
	return premul
}

// Unpremultiply converts premultiplied alpha back to straight alpha.
func Unpremultiply(img *image.RGBA) *image.NRGBA {
	b := img.Bounds()
	result := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := result.PixOffset(x, y)
			a := float64(img.Pix[si+3])
			if a > 1 {
				inv := 255.0 / a
				result.Pix[di] = clamp8(float64(img.Pix[si]) * inv)
				result.Pix[di+1] = clamp8(float64(img.Pix[si+1]) * inv)
				result.Pix[di+2] = clamp8(float64(img.Pix[si+2]) * inv)
			}
			result.Pix[di+3] = img.Pix[si+3]
		}
	}
	return result
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
