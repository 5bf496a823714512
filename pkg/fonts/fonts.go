// Package fonts loads the per-field fonts of a card. Any font that cannot
// be read or parsed is replaced by an embedded Go font, so loading never
// fails the caller.
package fonts

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/menta2k/postmaker/pkg/types"
)

// Embedded fallback per field.
var fallbacks = map[types.Field][]byte{
	types.Quote:     goitalic.TTF,
	types.Subquote:  goitalic.TTF,
	types.Subquote2: goregular.TTF,
	types.Tag:       gomedium.TTF,
	types.Tag2:      goregular.TTF,
}

// FontSet holds one parsed font per text field.
type FontSet struct {
	fonts map[types.Field]*opentype.Font
}

// PathSource supplies the configured font file for each field.
type PathSource interface {
	FontPath(f types.Field) string
}

// Load parses the configured font of every field, substituting the
// embedded fallback (and logging why) when a path is empty or unusable.
func Load(paths PathSource, logger *slog.Logger) *FontSet {
	if logger == nil {
		logger = slog.Default()
	}

	set := Embedded()
	for _, f := range types.Fields {
		path := paths.FontPath(f)
		if path == "" {
			continue
		}
		parsed, err := LoadFont(path)
		if err != nil {
			logger.Warn("using embedded font", "field", f.String(), "path", path, "err", err)
			continue
		}
		set.fonts[f] = parsed
	}
	return set
}

// Embedded returns a FontSet made only of embedded fonts.
func Embedded() *FontSet {
	set := &FontSet{fonts: make(map[types.Field]*opentype.Font, len(fallbacks))}
	for f, data := range fallbacks {
		parsed, err := opentype.Parse(data)
		if err != nil {
			panic(fmt.Sprintf("fonts: embedded font for %s: %v", f, err))
		}
		set.fonts[f] = parsed
	}
	return set
}

// LoadFont reads and parses the font file at path.
func LoadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return parsed, nil
}

// Face returns a new face for a field at the given pixel size. Faces are
// not safe for concurrent use; callers should Close them when done.
func (s *FontSet) Face(f types.Field, size float64) (font.Face, error) {
	parsed, ok := s.fonts[f]
	if !ok {
		return nil, fmt.Errorf("fonts: no font for field %s", f)
	}
	if size <= 0 {
		size = 1
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}
