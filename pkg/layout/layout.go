// Package layout measures and places multi-line text fields. Vertical
// positions are given in original image space and scaled to whatever
// image is being drawn on, so preview and export place text identically.
package layout

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Anchor selects how a line is placed horizontally.
type Anchor int

const (
	// Center places each line in the middle of the image.
	Center Anchor = iota
	// Right ends each line at RightMargin * image width.
	Right
)

// Line spacing factors applied to every line after the first.
const (
	QuoteSpacing = 1.12
	TagSpacing   = 1.2
)

// Placement describes where a text field goes.
type Placement struct {
	Position       float64 // top of the first line, original space
	OriginalHeight float64
	Anchor         Anchor
	RightMargin    float64 // Right anchor only
	LineSpacing    float64 // 0 or 1 stacks lines at plain line height
	Color          color.Color
}

// Lines splits text on line breaks. A trailing break does not start a new
// line and empty text has no lines.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// MeasureLine returns the advance width of text and the face's line height
// (ascent + descent + line gap). The height does not depend on text.
func MeasureLine(face font.Face, text string) (float64, float64) {
	width := fromFixed(font.MeasureString(face, text))
	height := fromFixed(face.Metrics().Height)
	return width, height
}

// Spacing returns the factor applied to line i.
func Spacing(i int, factor float64) float64 {
	if i == 0 || factor <= 0 {
		return 1
	}
	return factor
}

// Measure returns the bounding box of text: the widest line and the sum
// of line heights with spacing applied.
func Measure(face font.Face, text string, factor float64) (float64, float64) {
	var boxW, boxH float64
	for i, line := range Lines(text) {
		w, h := MeasureLine(face, line)
		boxW = math.Max(boxW, w)
		boxH += h * Spacing(i, factor)
	}
	return boxW, boxH
}

// Top returns the y of the first line on an image of height imgH.
func (p Placement) Top(imgH float64) float64 {
	if p.OriginalHeight <= 0 {
		return p.Position
	}
	return p.Position * imgH / p.OriginalHeight
}

// Origin returns the top-left corner of line i.
func (p Placement) Origin(i int, imgW, imgH, textW, lineH float64) (float64, float64) {
	y := p.Top(imgH) + float64(i)*lineH*Spacing(i, p.LineSpacing)

	var x float64
	switch p.Anchor {
	case Right:
		x = imgW*p.RightMargin - textW
	default:
		x = (imgW - textW) / 2
	}
	return x, y
}

// DrawMultiline draws every line of text onto dst.
func DrawMultiline(dst draw.Image, face font.Face, text string, p Placement) {
	lines := Lines(text)
	if len(lines) == 0 {
		return
	}

	b := dst.Bounds()
	imgW, imgH := float64(b.Dx()), float64(b.Dy())
	ascent := fromFixed(face.Metrics().Ascent)

	col := p.Color
	if col == nil {
		col = color.White
	}
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
	}

	for i, line := range lines {
		w, h := MeasureLine(face, line)
		x, y := p.Origin(i, imgW, imgH, w, h)
		drawer.Dot = fixed.Point26_6{
			X: toFixed(float64(b.Min.X) + x),
			Y: toFixed(float64(b.Min.Y) + y + ascent),
		}
		drawer.DrawString(line)
	}
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
