// Package container owns one open image: its pristine decode, the cropped
// and thumbnailed working copy, the rendered preview buffer, and the file
// operations (save, clone, delete) on the source and its companions.
package container

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/postmaker/internal/utils"
	"github.com/menta2k/postmaker/pkg/cropper"
	"github.com/menta2k/postmaker/pkg/processing"
	"github.com/menta2k/postmaker/pkg/properties"
	"github.com/menta2k/postmaker/pkg/render"
	"github.com/menta2k/postmaker/pkg/types"
)

// ErrNoImage is returned by file operations on a container without a source.
var ErrNoImage = errors.New("container: no image loaded")

const cloneSuffix = "-copy"

// Suggester proposes a crop origin, in the image's own coordinates, for a
// ratio crop of img.
type Suggester interface {
	SuggestCropPosition(ctx context.Context, img image.Image, ratio cropper.AspectRatio) (float64, float64, error)
}

// Container is the editing state of one image. It is not safe for
// concurrent use; the worker serializes every call. Only the shared
// properties may be touched from other goroutines.
type Container struct {
	original *image.NRGBA // pristine decode, never drawn on
	image    *image.NRGBA // cropped, resized working copy
	buffer   *image.NRGBA // working copy with layer and text

	props     *properties.Shared
	renderer  *render.Renderer
	processor *processing.Processor
	logger    *slog.Logger
}

// OpenOptions controls Open.
type OpenOptions struct {
	// Crop overrides the persisted crop position.
	Crop *[2]float64
	// TagDefault and Tag2Default fill tags the sidecar leaves out.
	TagDefault  string
	Tag2Default string
}

// New decodes the source image and resets shared to a fresh state holding
// its dimensions and the default field positions. A decode failure aborts
// the open and leaves shared untouched.
func New(info types.ImageInfo, shared *properties.Shared, r *render.Renderer, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	processor := processing.NewProcessor()
	img, err := processor.LoadImage(info)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(info.Path), err)
	}

	cfg := r.Config()
	width, height := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
	shared.Update(func(p *properties.ImageProperties) {
		*p = properties.New()
		i := info
		p.Info = &i
		p.OriginalDimension = [2]float64{width, height}
		p.Dimension = p.OriginalDimension
		p.TranslucentLayerColor = cfg.ColorLayer
		for _, f := range types.Fields {
			p.SetPosition(f, height*cfg.PositionRatio(f))
		}
		p.IsSaved = true
	})

	return &Container{
		original:  img,
		image:     img,
		buffer:    img,
		props:     shared,
		renderer:  r,
		processor: processor,
		logger:    logger.With("image", filepath.Base(info.Path)),
	}, nil
}

// Open creates a container and brings it to a displayable state: the
// sidecar is merged, the crop applied (opts.Crop, then the persisted crop,
// then centered), the working copy thumbnailed and the buffer redrawn.
// A corrupt sidecar is deleted and defaults are used.
func Open(info types.ImageInfo, shared *properties.Shared, r *render.Renderer, logger *slog.Logger, opts OpenOptions) (*Container, error) {
	c, err := New(info, shared, r, logger)
	if err != nil {
		return nil, err
	}

	sidecar := properties.SidecarPath(info)
	file, err := properties.LoadFile(sidecar)
	if err != nil {
		c.logger.Warn("discarding properties file", "path", sidecar, "err", err)
		if errors.Is(err, properties.ErrCorrupt) {
			if rmErr := utils.RemoveIfExists(sidecar); rmErr != nil {
				c.logger.Warn("failed to delete properties file", "path", sidecar, "err", rmErr)
			}
		}
		file = properties.File{}
	}

	layerDefault := r.Config().ColorLayer
	var crop *[2]float64
	shared.Update(func(p *properties.ImageProperties) {
		p.Merge(file, opts.TagDefault, opts.Tag2Default, layerDefault)
		p.IsSaved = true
		crop = p.CropPosition
	})

	switch {
	case opts.Crop != nil:
		c.ApplyCropPosition(opts.Crop[0], opts.Crop[1])
	case crop != nil:
		c.ApplyCropPosition(crop[0], crop[1])
	default:
		c.ApplyCrop()
	}
	c.ApplyResize()
	c.RedrawToBuffer()
	return c, nil
}

// Properties returns the shared edit state.
func (c *Container) Properties() *properties.Shared {
	return c.props
}

// Dimension returns the working image size.
func (c *Container) Dimension() [2]float64 {
	return c.props.Dimension()
}

// Buffer returns the last rendered preview.
func (c *Container) Buffer() *image.NRGBA {
	return c.buffer
}

// Original returns the pristine decode.
func (c *Container) Original() *image.NRGBA {
	return c.original
}

// ApplyResize thumbnails the working copy to the configured preview height.
func (c *Container) ApplyResize() {
	c.image = render.Thumbnail(c.image, int(c.renderer.Config().PreviewHeight))
	c.buffer = c.image

	size := c.image.Bounds().Size()
	c.props.Update(func(p *properties.ImageProperties) {
		p.Dimension = [2]float64{float64(size.X), float64(size.Y)}
	})
}

// ApplyCrop crops the working copy to a centered ratio crop.
func (c *Container) ApplyCrop() {
	b := c.original.Bounds()
	x, y := cropper.CenteredPosition(float64(b.Dx()), float64(b.Dy()), c.renderer.Ratio())
	c.crop(x, y)
}

// ApplyCropPosition crops the working copy at an explicit position given
// in original space. Positions that would leave the image are clamped.
func (c *Container) ApplyCropPosition(x, y float64) {
	b := c.original.Bounds()
	x, y = cropper.ClampPosition(x, y, float64(b.Dx()), float64(b.Dy()), c.renderer.Ratio())
	c.crop(x, y)
}

// crop restarts the working copy from the pristine decode.
func (c *Container) crop(x, y float64) {
	ratio := c.renderer.Ratio()
	var original [2]float64
	c.props.Update(func(p *properties.ImageProperties) {
		p.CropPosition = &[2]float64{x, y}
		original = p.OriginalDimension
	})

	b := c.original.Bounds()
	sw, sh := float64(b.Dx()), float64(b.Dy())
	cx, cy := cropper.ToWorking(x, y, original[0], original[1], sw, sh)
	rect := cropper.Rect(cx, cy, sw, sh, ratio)

	c.image = imaging.Crop(c.original, rect.Add(b.Min))
	c.buffer = c.image

	size := c.image.Bounds().Size()
	c.props.Update(func(p *properties.ImageProperties) {
		p.Dimension = [2]float64{float64(size.X), float64(size.Y)}
	})
}

// ApplySubjectCrop asks s for a crop centered on the subject of the image
// and applies it. The working copy is left at full size; callers resize
// and redraw afterwards.
func (c *Container) ApplySubjectCrop(ctx context.Context, s Suggester) error {
	x, y, err := s.SuggestCropPosition(ctx, c.original, c.renderer.Ratio())
	if err != nil {
		return fmt.Errorf("failed to suggest crop: %w", err)
	}
	c.logger.Debug("subject crop", "x", x, "y", y)

	c.ApplyCropPosition(x, y)
	c.props.Update(func(p *properties.ImageProperties) {
		p.IsSaved = false
	})
	return nil
}

// RedrawToBuffer renders layer and text onto a copy of the working image.
func (c *Container) RedrawToBuffer() {
	props := c.props.Snapshot()
	c.buffer = c.renderer.Preview(c.image, &props)
}

// IsTooSmall reports whether the source is too narrow for a usable crop.
func (c *Container) IsTooSmall() bool {
	b := c.original.Bounds()
	cfg := c.renderer.Config()
	return cropper.IsTooSmall(float64(b.Dx()), float64(b.Dy()), c.renderer.Ratio(), cfg.MinimumWidthLimit)
}

// Save writes the sidecar, then renders and writes the export. Either
// failure is logged and returned without affecting the session; the state
// is marked saved only when both succeed.
func (c *Container) Save() (string, error) {
	props := c.props.Snapshot()
	if props.Info == nil {
		return "", ErrNoImage
	}
	cfg := c.renderer.Config()

	var errs []error
	sidecar := properties.SidecarPath(*props.Info)
	if err := properties.SaveFile(sidecar, properties.FileFrom(&props)); err != nil {
		c.logger.Warn("failed to save properties", "path", sidecar, "err", err)
		errs = append(errs, err)
	}

	exportPath := processing.ExportPath(*props.Info, props.NamePrefix, cfg.ImageFormat)
	frame := c.renderer.ExportFrame(c.original, &props)
	if err := c.processor.SaveImage(frame, exportPath, cfg.ImageFormat); err != nil {
		c.logger.Warn("failed to export image", "path", exportPath, "err", err)
		errs = append(errs, err)
	} else {
		c.logger.Info("exported", "path", exportPath, "width", frame.Bounds().Dx(), "height", frame.Bounds().Dy())
	}

	if len(errs) == 0 {
		c.props.Update(func(p *properties.ImageProperties) {
			p.IsSaved = true
		})
	}
	return exportPath, errors.Join(errs...)
}

// CloneImg copies the source, and its sidecar when present, to the first
// free "<stem>-copy[-copy...]<ext>" name and returns the new image. A
// failed sidecar copy is reported alongside the new image.
func (c *Container) CloneImg() (*types.ImageInfo, error) {
	props := c.props.Snapshot()
	if props.Info == nil {
		return nil, ErrNoImage
	}
	src := *props.Info

	dir, ext := filepath.Dir(src.Path), filepath.Ext(src.Path)
	stem := strings.TrimSuffix(filepath.Base(src.Path), ext)
	clone := src
	for i := 1; taken(clone.Path); i++ {
		clone.Path = filepath.Join(dir, stem+strings.Repeat(cloneSuffix, i)+ext)
	}

	if err := utils.CopyFile(src.Path, clone.Path); err != nil {
		c.logger.Warn("failed to clone image", "path", clone.Path, "err", err)
		return nil, fmt.Errorf("failed to clone image: %w", err)
	}

	sidecar := properties.SidecarPath(src)
	if utils.FileExists(sidecar) {
		if err := utils.CopyFile(sidecar, properties.SidecarPath(clone)); err != nil {
			c.logger.Warn("failed to clone image properties", "err", err)
			return &clone, fmt.Errorf("failed to clone image properties: %w", err)
		}
	}

	c.logger.Info("cloned", "path", clone.Path)
	return &clone, nil
}

// taken reports whether anything, including a directory, occupies path.
func taken(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Delete removes the source, its sidecar and its export. Each removal is
// attempted independently and files already gone are not errors.
func (c *Container) Delete() error {
	props := c.props.Snapshot()
	if props.Info == nil {
		return ErrNoImage
	}
	info := *props.Info
	kind := c.renderer.Config().ImageFormat

	var errs []error
	for _, path := range []string{
		info.Path,
		properties.SidecarPath(info),
		processing.ExportPath(info, props.NamePrefix, kind),
	} {
		if err := utils.RemoveIfExists(path); err != nil {
			c.logger.Warn("failed to delete", "path", path, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
