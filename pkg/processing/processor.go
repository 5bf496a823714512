package processing

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/postmaker/internal/utils"
	"github.com/menta2k/postmaker/pkg/types"
)

var (
	// ErrDecode is returned when a source image cannot be decoded.
	ErrDecode = errors.New("processing: decode failed")

	// ErrUnsupportedFormat is returned for kinds that cannot be read or written.
	ErrUnsupportedFormat = errors.New("processing: unsupported format")
)

// ExportDir is the directory, beside the source images, that exports go to.
const ExportDir = "export"

// Processor handles image decoding and encoding
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// LoadImage decodes the source image according to its detected kind and
// returns it as NRGBA. JPEG orientation tags are applied.
func (p *Processor) LoadImage(info types.ImageInfo) (*image.NRGBA, error) {
	switch info.Kind {
	case types.KindWebP:
		data, err := os.ReadFile(info.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		img, err := p.decodeWebP(data)
		if err != nil {
			return nil, err
		}
		return imaging.Clone(img), nil
	case types.KindJPEG, types.KindPNG:
		img, err := imaging.Open(info.Path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(info.Path), err)
		}
		return imaging.Clone(img), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(info.Path))
	}
}

// decodeWebP tries the libwebp decoder first and falls back to x/image.
func (p *Processor) decodeWebP(data []byte) (image.Image, error) {
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: webp: %v", ErrDecode, err)
	}
	return img, nil
}

// Encode writes img to w in the given format. PNG uses best compression,
// JPEG quality 100 on an opaque RGB frame, WebP quality 100.
func (p *Processor) Encode(w io.Writer, img image.Image, kind types.ImageKind) error {
	switch kind {
	case types.KindPNG:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case types.KindJPEG:
		return jpeg.Encode(w, opaque(img), &jpeg.Options{Quality: 100})
	case types.KindWebP:
		return webp.Encode(w, img, &webp.Options{Quality: 100})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, kind)
	}
}

// opaque flattens img onto black so JPEG never sees partial alpha.
func opaque(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), blackOpaque)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// SaveImage encodes img to path, creating the parent directory on demand.
// The file is written under a temporary name and renamed into place, so a
// failed encode leaves any previous export untouched.
func (p *Processor) SaveImage(img image.Image, path string, kind types.ImageKind) error {
	dir := filepath.Dir(path)
	if err := utils.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create export folder: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := p.Encode(tmp, img, kind); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

// ExportPath returns "<source dir>/export/<prefix><mangled name>.<ext>".
func ExportPath(info types.ImageInfo, prefix string, kind types.ImageKind) string {
	name := utils.SanitizeFilename(prefix) + utils.MangleName(info.Path) + "." + kind.Extension()
	return filepath.Join(filepath.Dir(info.Path), ExportDir, name)
}

// EncodeForModel downscales img so neither side exceeds maxDim and encodes
// it as JPEG for a vision model request.
func (p *Processor) EncodeForModel(img image.Image, maxDim int, quality int) ([]byte, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, opaque(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
