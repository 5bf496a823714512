// Package vision places a crop over the most detailed part of an image
// without a vision model.
package vision

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/postmaker/pkg/cropper"
)

// SaliencyDetector scores crop windows by edge density and contrast
type SaliencyDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for saliency detection
type DetectionConfig struct {
	// MaxDim bounds the long side of the analysed copy.
	MaxDim         int
	EdgeWeight     float64
	ContrastWeight float64
}

// New creates a new SaliencyDetector with default configuration
func New() *SaliencyDetector {
	return &SaliencyDetector{
		config: DetectionConfig{
			MaxDim:         256,
			EdgeWeight:     0.7,
			ContrastWeight: 0.3,
		},
	}
}

// NewWithConfig creates a new SaliencyDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SaliencyDetector {
	if config.MaxDim <= 0 {
		config.MaxDim = 256
	}
	return &SaliencyDetector{config: config}
}

// Map is a per-pixel saliency map with a summed-area table for window sums.
type Map struct {
	Width, Height int
	values        []float64
	sums          []float64 // (Width+1)*(Height+1)
}

// At returns the saliency of one pixel.
func (m *Map) At(x, y int) float64 {
	return m.values[y*m.Width+x]
}

// Sum returns the total saliency of r, clipped to the map.
func (m *Map) Sum(r image.Rectangle) float64 {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	if r.Empty() {
		return 0
	}
	stride := m.Width + 1
	return m.sums[r.Max.Y*stride+r.Max.X] - m.sums[r.Min.Y*stride+r.Max.X] -
		m.sums[r.Max.Y*stride+r.Min.X] + m.sums[r.Min.Y*stride+r.Min.X]
}

// SaliencyMap computes the map of img at its own resolution.
func (d *SaliencyDetector) SaliencyMap(img image.Image) *Map {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	luma := make([]float64, w*h)
	var mean float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := src.PixOffset(x, y)
			p := src.Pix[i : i+4 : i+4]
			a := float64(p[3]) / 255
			l := (0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])) / 255 * a
			luma[y*w+x] = l
			mean += l
		}
	}
	if len(luma) > 0 {
		mean /= float64(len(luma))
	}

	m := &Map{
		Width:  w,
		Height: h,
		values: make([]float64, w*h),
		sums:   make([]float64, (w+1)*(h+1)),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := luma[y*w+x]
			// Gradient magnitude from forward and backward neighbours.
			gx := luma[y*w+min(x+1, w-1)] - luma[y*w+max(x-1, 0)]
			gy := luma[min(y+1, h-1)*w+x] - luma[max(y-1, 0)*w+x]
			edge := math.Sqrt(gx*gx + gy*gy)
			m.values[y*w+x] = d.config.EdgeWeight*edge + d.config.ContrastWeight*math.Abs(l-mean)
		}
	}

	stride := w + 1
	for y := 1; y <= h; y++ {
		var row float64
		for x := 1; x <= w; x++ {
			row += m.values[(y-1)*w+(x-1)]
			m.sums[y*stride+x] = m.sums[(y-1)*stride+x] + row
		}
	}
	return m
}

// SuggestCropPosition returns the origin of the largest ratio crop of img
// holding the most saliency, in img's own coordinates. Ties go to the
// window closest to the centered crop.
func (d *SaliencyDetector) SuggestCropPosition(ctx context.Context, img image.Image, ratio cropper.AspectRatio) (float64, float64, error) {
	b := img.Bounds()
	width, height := float64(b.Dx()), float64(b.Dy())
	cropW, cropH := cropper.CroppedSize(width, height, ratio)
	centerX, centerY := cropper.CenteredPosition(width, height, ratio)
	if cropW >= width && cropH >= height {
		return centerX, centerY, nil
	}

	small := img
	if b.Dx() > d.config.MaxDim || b.Dy() > d.config.MaxDim {
		small = imaging.Fit(img, d.config.MaxDim, d.config.MaxDim, imaging.Box)
	}
	m := d.SaliencyMap(small)
	scale := float64(m.Width) / width

	winW := max(1, int(math.Round(cropW*scale)))
	winH := max(1, int(math.Round(cropH*scale)))
	cx, cy := centerX*scale, centerY*scale

	best, bestDist := -1.0, math.Inf(1)
	bestX, bestY := 0, 0
	const eps = 1e-9
	for y := 0; y <= m.Height-winH; y++ {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		for x := 0; x <= m.Width-winW; x++ {
			score := m.Sum(image.Rect(x, y, x+winW, y+winH))
			dist := math.Hypot(float64(x)-cx, float64(y)-cy)
			if score > best+eps || (math.Abs(score-best) <= eps && dist < bestDist) {
				best, bestDist = score, dist
				bestX, bestY = x, y
			}
		}
	}

	x, y := cropper.ClampPosition(float64(bestX)/scale, float64(bestY)/scale, width, height, ratio)
	return x, y, nil
}
