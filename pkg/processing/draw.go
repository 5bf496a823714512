package processing

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

var blackOpaque = color.NRGBA{0, 0, 0, 255}

// Layer composites a full-size translucent color layer over img.
func Layer(img image.Image, rgba [4]uint8) *image.NRGBA {
	b := img.Bounds()
	layer := imaging.New(b.Dx(), b.Dy(), color.NRGBA{rgba[0], rgba[1], rgba[2], rgba[3]})
	return imaging.Overlay(img, layer, image.Pt(0, 0), 1.0)
}

// DrawHollowRect draws a one pixel outline of r, clipped to img.
func DrawHollowRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	drawHLine(img, r.Min.Y, r.Min.X, r.Max.X, c)
	drawHLine(img, r.Max.Y-1, r.Min.X, r.Max.X, c)
	drawVLine(img, r.Min.X, r.Min.Y, r.Max.Y, c)
	drawVLine(img, r.Max.X-1, r.Min.Y, r.Max.Y, c)
}

// BlendOver composites src over dst (straight alpha).
func BlendOver(dst, src color.NRGBA) color.NRGBA {
	sa := float64(src.A) / 255
	da := float64(dst.A) / 255
	oa := sa + da*(1-sa)
	if oa == 0 {
		return color.NRGBA{}
	}
	mix := func(s, d uint8) uint8 {
		v := (float64(s)*sa + float64(d)*da*(1-sa)) / oa
		return uint8(v + 0.5)
	}
	return color.NRGBA{
		R: mix(src.R, dst.R),
		G: mix(src.G, dst.G),
		B: mix(src.B, dst.B),
		A: uint8(oa*255 + 0.5),
	}
}

// CornerColor averages the four corner pixels of img.
func CornerColor(img *image.NRGBA) color.NRGBA {
	b := img.Bounds()
	if b.Empty() {
		return color.NRGBA{}
	}
	corners := []color.NRGBA{
		img.NRGBAAt(b.Min.X, b.Min.Y),
		img.NRGBAAt(b.Min.X, b.Max.Y-1),
		img.NRGBAAt(b.Max.X-1, b.Max.Y-1),
		img.NRGBAAt(b.Max.X-1, b.Min.Y),
	}
	var r, g, bl, a int
	for _, c := range corners {
		r += int(c.R)
		g += int(c.G)
		bl += int(c.B)
		a += int(c.A)
	}
	n := len(corners)
	return color.NRGBA{uint8(r / n), uint8(g / n), uint8(bl / n), uint8(a / n)}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= b.Min.X || x0 >= b.Max.X {
		return
	}
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if x1 > b.Max.X {
		x1 = b.Max.X
	}
	i := img.PixOffset(x0, y)
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= b.Min.Y || y0 >= b.Max.Y {
		return
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	i := img.PixOffset(x, y0)
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
