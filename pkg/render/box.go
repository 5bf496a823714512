package render

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/menta2k/postmaker/pkg/processing"
)

var (
	panelTint   = color.NRGBA{20, 22, 25, 80}
	shadowColor = color.NRGBA{30, 30, 30, 255}
	borderShade = color.NRGBA{0, 0, 0, 16}
)

const panelBlur = 15.0

// drawQuoteBox draws a blurred, tinted panel with a soft shadow and a
// double border behind a quote of size boxW x boxH whose first line sits at
// position (original space). It returns the composited image and false
// when the box would start outside the image, in which case img is
// returned unchanged. Glyphs are left to the caller.
func drawQuoteBox(img *image.NRGBA, boxW, boxH, position float64, original [2]float64) (*image.NRGBA, bool) {
	if boxW <= 0 || original[0] <= 0 || original[1] <= 0 {
		return img, false
	}

	b := img.Bounds()
	width, height := float64(b.Dx()), float64(b.Dy())
	dx, dy := width/original[0], height/original[1]

	xGap, yGap := 30*dx, 10*dy
	x := max(int((width-boxW)/2-xGap), 0)
	y := max(int(position*height/original[1]-yGap), 0)
	if x >= b.Dx() || y >= b.Dy() {
		return img, false
	}

	rect := image.Rect(x, y, x+int(boxW+2*xGap), y+int(boxH+2*yGap)).Intersect(b)
	if rect.Empty() {
		return img, false
	}
	w, h := rect.Dx(), rect.Dy()

	panel := imaging.Crop(img, rect)
	panel = imaging.Overlay(panel, imaging.New(w, h, panelTint), image.Pt(0, 0), 1.0)
	panel = imaging.Blur(panel, panelBlur)

	sx, sy := int(20*dx), int(20*dy)
	shadow := imaging.New(w+2*sx, h+2*sy, color.NRGBA{})
	processing.DrawHollowRect(shadow, image.Rect(sx, sy, sx+w, sy+h), shadowColor)
	shadow = imaging.Blur(shadow, 5*dx)

	out := imaging.Overlay(img, shadow, image.Pt(x-sx, y-sy), 1.0)
	out = imaging.Overlay(out, panel, rect.Min, 1.0)

	border := processing.CornerColor(panel)
	o := int(dx)
	processing.DrawHollowRect(out, image.Rect(x-o, y-o, x+w+o, y+h+o), border)
	processing.DrawHollowRect(out, rect, processing.BlendOver(border, borderShade))

	return out, true
}
