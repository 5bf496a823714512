// Package render draws the translucent layer and text fields of a card,
// both on the small working image shown while editing and on the full
// resolution frame that gets exported.
package render

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/menta2k/postmaker/internal/config"
	"github.com/menta2k/postmaker/pkg/cropper"
	"github.com/menta2k/postmaker/pkg/fonts"
	"github.com/menta2k/postmaker/pkg/layout"
	"github.com/menta2k/postmaker/pkg/processing"
	"github.com/menta2k/postmaker/pkg/properties"
	"github.com/menta2k/postmaker/pkg/types"
)

// Text colors. Only the tag is drawn fully opaque.
var (
	textColor = color.NRGBA{255, 255, 255, 100}
	tagColor  = color.NRGBA{255, 255, 255, 255}
)

// Renderer draws cards for one configuration and font set.
type Renderer struct {
	cfg    *config.Config
	fonts  *fonts.FontSet
	logger *slog.Logger
}

// New creates a renderer. A nil logger means slog.Default().
func New(cfg *config.Config, fs *fonts.FontSet, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if fs == nil {
		fs = fonts.Embedded()
	}
	return &Renderer{cfg: cfg, fonts: fs, logger: logger}
}

// Config returns the renderer configuration.
func (r *Renderer) Config() *config.Config {
	return r.cfg
}

// Ratio returns the configured crop aspect ratio.
func (r *Renderer) Ratio() cropper.AspectRatio {
	return cropper.FromPair(r.cfg.ImageRatio)
}

// DrawLayerAndText composites the translucent layer over img and draws
// every non-empty field on top. img is not modified.
func (r *Renderer) DrawLayerAndText(img image.Image, props *properties.ImageProperties) *image.NRGBA {
	out := processing.Layer(img, props.TranslucentLayerColor)
	imgH := float64(out.Bounds().Dy())

	for _, f := range types.Fields {
		text := props.Text(f)
		if text == "" {
			continue
		}

		face, err := r.fonts.Face(f, r.cfg.FontSize(f, imgH))
		if err != nil {
			r.logger.Warn("skipping field", "field", f.String(), "err", err)
			continue
		}

		p := r.placement(f, props)
		if f == types.Quote && r.cfg.DrawBoxAroundQuote {
			boxW, boxH := layout.Measure(face, text, p.LineSpacing)
			var drawn bool
			if out, drawn = drawQuoteBox(out, boxW, boxH, p.Position, props.OriginalDimension); !drawn {
				r.logger.Debug("quote box skipped", "position", p.Position)
			}
		}
		layout.DrawMultiline(out, face, text, p)
		face.Close()
	}
	return out
}

func (r *Renderer) placement(f types.Field, props *properties.ImageProperties) layout.Placement {
	p := layout.Placement{
		Position:       props.Position(f),
		OriginalHeight: props.OriginalDimension[1],
		Color:          textColor,
	}
	if f == types.Tag {
		p.Color = tagColor
	}
	spacing := layout.QuoteSpacing
	if f.IsTag() {
		p.Anchor = layout.Right
		p.RightMargin = r.cfg.TagXPositionRatio
		spacing = layout.TagSpacing
	}
	if r.cfg.LineSpacing {
		p.LineSpacing = spacing
	}
	return p
}

// Preview renders the working image for display.
func (r *Renderer) Preview(working image.Image, props *properties.ImageProperties) *image.NRGBA {
	return r.DrawLayerAndText(working, props)
}

// Thumbnail scales img to the given height keeping its aspect ratio.
func Thumbnail(img image.Image, height int) *image.NRGBA {
	if height <= 0 || img.Bounds().Dy() == height {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, 0, height, imaging.Linear)
}

// ExportFrame builds the final card from the full resolution original:
// ratio crop at the persisted crop position (centered when unset), then a
// downscale to the maximum width, then layer and text.
func (r *Renderer) ExportFrame(original image.Image, props *properties.ImageProperties) *image.NRGBA {
	b := original.Bounds()
	width, height := float64(b.Dx()), float64(b.Dy())
	ratio := r.Ratio()

	x, y := cropper.CenteredPosition(width, height, ratio)
	if props.CropPosition != nil {
		x, y = cropper.ClampPosition(props.CropPosition[0], props.CropPosition[1], width, height, ratio)
	}
	frame := imaging.Crop(original, cropper.Rect(x, y, width, height, ratio).Add(b.Min))

	maxW := r.cfg.MaximumWidthLimit
	if maxW > 0 && float64(frame.Bounds().Dx()) > maxW {
		frame = imaging.Resize(frame, int(maxW), int(ratio.HeightFromWidth(maxW)), imaging.Lanczos)
	}

	return r.DrawLayerAndText(frame, props)
}
