// Package cropper computes fixed aspect ratio crops and converts crop
// positions between original and working image space.
package cropper

import (
	"image"
	"math"
)

// AspectRatio is a width:height target ratio.
type AspectRatio struct {
	Width  float64
	Height float64
}

// Common aspect ratios
var (
	Square    = AspectRatio{1, 1}
	Portrait  = AspectRatio{3, 4}
	Instagram = AspectRatio{4, 5}
	Story     = AspectRatio{9, 16}
)

// FromPair builds an AspectRatio from a [w, h] configuration value.
func FromPair(p [2]float64) AspectRatio {
	return AspectRatio{Width: p[0], Height: p[1]}
}

// WidthFromHeight returns the width matching height at this ratio.
func (r AspectRatio) WidthFromHeight(height float64) float64 {
	return r.Width * height / r.Height
}

// HeightFromWidth returns the height matching width at this ratio.
func (r AspectRatio) HeightFromWidth(width float64) float64 {
	return r.Height * width / r.Width
}

// CroppedSize returns the largest size with the target ratio that fits in
// width x height. When the source is wider than the ratio the height is the
// limiting dimension, otherwise the width is.
func CroppedSize(width, height float64, ratio AspectRatio) (float64, float64) {
	if width > ratio.WidthFromHeight(height) {
		return ratio.WidthFromHeight(height), height
	}
	return width, ratio.HeightFromWidth(width)
}

// IsTooSmall reports whether the ratio-cropped width is below minWidth.
func IsTooSmall(width, height float64, ratio AspectRatio, minWidth float64) bool {
	cropWidth, _ := CroppedSize(width, height, ratio)
	return cropWidth < minWidth
}

// CenteredPosition returns the top-left corner of a centered ratio crop.
func CenteredPosition(width, height float64, ratio AspectRatio) (float64, float64) {
	cw, ch := CroppedSize(width, height, ratio)
	return (width - cw) / 2, (height - ch) / 2
}

// ClampPosition keeps a ratio crop starting at (x, y) inside width x height.
func ClampPosition(x, y, width, height float64, ratio AspectRatio) (float64, float64) {
	cw, ch := CroppedSize(width, height, ratio)
	return clamp(x, 0, width-cw), clamp(y, 0, height-ch)
}

// ToWorking converts a position in original space to working space.
func ToWorking(x, y, originalWidth, originalHeight, workingWidth, workingHeight float64) (float64, float64) {
	if originalWidth <= 0 || originalHeight <= 0 {
		return 0, 0
	}
	return x * workingWidth / originalWidth, y * workingHeight / originalHeight
}

// SubjectPosition returns the crop position that centers a ratio crop on
// the normalized subject point (cx, cy), clamped to the image.
func SubjectPosition(cx, cy, width, height float64, ratio AspectRatio) (float64, float64) {
	cw, ch := CroppedSize(width, height, ratio)
	px := clamp(cx, 0, 1) * width
	py := clamp(cy, 0, 1) * height
	return ClampPosition(px-cw/2, py-ch/2, width, height, ratio)
}

// Rect returns the integer crop rectangle at (x, y) for an image of
// width x height, intersected with the image bounds.
func Rect(x, y, width, height float64, ratio AspectRatio) image.Rectangle {
	cw, ch := CroppedSize(width, height, ratio)
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	r := image.Rect(x0, y0, x0+int(cw), y0+int(ch))
	return r.Intersect(image.Rect(0, 0, int(width), int(height)))
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
