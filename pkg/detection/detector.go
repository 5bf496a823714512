// Package detection turns vision model subject locations into crop
// positions.
package detection

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"strings"

	"github.com/menta2k/postmaker/pkg/client"
	"github.com/menta2k/postmaker/pkg/cropper"
	"github.com/menta2k/postmaker/pkg/processing"
	"github.com/menta2k/postmaker/pkg/types"
)

// DefaultPrompt asks for the normalized center of the dominant subject.
const DefaultPrompt = `You locate the main subject of a photo so it can be cropped for a quote card.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
    "cx": 0.0,
    "cy": 0.0
  },
  "description": "short neutral sentence"
}

RULES
- All coordinates are normalized to [0,1], origin top-left.
- cx, cy is the center of the visually dominant subject (prefer faces, people, animals).
- If there is no clear subject, use label "none", confidence 0 and cx = cy = 0.5.
- JSON only. No markdown, no comments.`

// Defaults for Detector.
const (
	DefaultMaxDim        = 768
	DefaultQuality       = 85
	DefaultMinConfidence = 0.3
)

// Detector suggests crop positions from a vision model answer.
type Detector struct {
	client client.VisionClient
	model  string
	logger *slog.Logger

	Prompt        string
	MaxDim        int
	MinConfidence float64
}

// NewDetector creates a detector querying model through c.
func NewDetector(c client.VisionClient, model string, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		client:        c,
		model:         model,
		logger:        logger,
		Prompt:        DefaultPrompt,
		MaxDim:        DefaultMaxDim,
		MinConfidence: DefaultMinConfidence,
	}
}

// DetectSubject locates the dominant subject of img. Uncertain answers
// are reported as a centered subject.
func (d *Detector) DetectSubject(ctx context.Context, img image.Image) (*types.SubjectResult, error) {
	data, err := processing.NewProcessor().EncodeForModel(img, d.MaxDim, DefaultQuality)
	if err != nil {
		return nil, err
	}

	result, err := d.client.LocateSubject(ctx, d.model, d.Prompt, data)
	if err != nil {
		return nil, err
	}
	d.normalize(result)
	return result, nil
}

// SuggestCropPosition returns the origin of a ratio crop of img centered
// on its subject, in img's own coordinates.
func (d *Detector) SuggestCropPosition(ctx context.Context, img image.Image, ratio cropper.AspectRatio) (float64, float64, error) {
	result, err := d.DetectSubject(ctx, img)
	if err != nil {
		return 0, 0, fmt.Errorf("subject detection failed: %w", err)
	}

	b := img.Bounds()
	x, y := cropper.SubjectPosition(result.Primary.Cx, result.Primary.Cy, float64(b.Dx()), float64(b.Dy()), ratio)
	d.logger.Debug("subject located",
		"label", result.Primary.Label,
		"confidence", result.Primary.Confidence,
		"cx", result.Primary.Cx,
		"cy", result.Primary.Cy)
	return x, y, nil
}

func (d *Detector) normalize(result *types.SubjectResult) {
	p := &result.Primary
	p.Box = normalizeBox(p.Box)

	// Some models only fill the box.
	if p.Cx == 0 && p.Cy == 0 && p.Box.W > 0 && p.Box.H > 0 {
		p.Cx = p.Box.X + p.Box.W/2
		p.Cy = p.Box.Y + p.Box.H/2
	}
	p.Cx, p.Cy = clamp(p.Cx, 0, 1), clamp(p.Cy, 0, 1)

	if strings.EqualFold(p.Label, "none") || p.Confidence < d.MinConfidence || math.IsNaN(p.Cx) || math.IsNaN(p.Cy) {
		p.Label = "none"
		p.Cx, p.Cy = 0.5, 0.5
	}
}

// normalizeBox clamps box coordinates to [0,1].
func normalizeBox(b types.Box) types.Box {
	return types.Box{
		X: clamp(b.X, 0, 1),
		Y: clamp(b.Y, 0, 1),
		W: clamp(b.W, 0, 1),
		H: clamp(b.H, 0, 1),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
