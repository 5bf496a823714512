package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/menta2k/postmaker/pkg/types"
)

var (
	// ErrCorrupt is returned when the configuration file cannot be parsed.
	ErrCorrupt = errors.New("config: corrupt file")

	// ErrProfileNotFound is returned when the requested profile is absent.
	ErrProfileNotFound = errors.New("config: profile not found")
)

// DefaultProfile is the profile name used when none is given.
const DefaultProfile = "default"

// Config holds one rendering profile.
type Config struct {
	QuoteFont     string `json:"quote_font"`
	SubquoteFont  string `json:"subquote_font"`
	Subquote2Font string `json:"subquote2_font"`
	TagFont       string `json:"tag_font"`
	Tag2Font      string `json:"tag2_font"`

	// Font size at a 5000px tall reference image.
	QuoteFontRatio     float64 `json:"quote_font_ratio"`
	SubquoteFontRatio  float64 `json:"subquote_font_ratio"`
	Subquote2FontRatio float64 `json:"subquote2_font_ratio"`
	TagFontRatio       float64 `json:"tag_font_ratio"`
	Tag2FontRatio      float64 `json:"tag2_font_ratio"`

	// Fraction of the original height; only used to seed default positions.
	QuotePositionRatio     float64 `json:"quote_position_ratio"`
	SubquotePositionRatio  float64 `json:"subquote_position_ratio"`
	Subquote2PositionRatio float64 `json:"subquote2_position_ratio"`
	TagPositionRatio       float64 `json:"tag_position_ratio"`
	Tag2PositionRatio      float64 `json:"tag2_position_ratio"`

	// Right edge of tag fields as a fraction of the image width.
	TagXPositionRatio float64 `json:"tag_x_position_ratio"`

	ImageRatio        [2]float64      `json:"image_ratio"`
	ColorLayer        [4]uint8        `json:"color_layer"`
	MinimumWidthLimit float64         `json:"minimum_width_limit"`
	MaximumWidthLimit float64         `json:"maximum_width_limit"`
	ImageFormat       types.ImageKind `json:"image_format"`

	DrawBoxAroundQuote bool `json:"draw_box_around_quote"`
	LineSpacing        bool `json:"line_spacing"`

	DefaultTag    string  `json:"default_tag"`
	DefaultTag2   string  `json:"default_tag2"`
	PreviewHeight float64 `json:"preview_height"`
}

// Profiles is the on-disk layout: profile name to configuration.
type Profiles map[string]Config

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		QuoteFontRatio:         250,
		SubquoteFontRatio:      230,
		Subquote2FontRatio:     230,
		TagFontRatio:           150,
		Tag2FontRatio:          150,
		QuotePositionRatio:     0.7,
		SubquotePositionRatio:  0.8,
		Subquote2PositionRatio: 0.9,
		TagPositionRatio:       0.5,
		Tag2PositionRatio:      0.95,
		TagXPositionRatio:      0.95,
		ImageRatio:             [2]float64{4, 5},
		ColorLayer:             [4]uint8{20, 22, 25, 197},
		MinimumWidthLimit:      650,
		MaximumWidthLimit:      1080,
		ImageFormat:            types.KindPNG,
		LineSpacing:            true,
		PreviewHeight:          500,
	}
}

// FontPath returns the configured font file for a field.
func (c *Config) FontPath(f types.Field) string {
	switch f {
	case types.Quote:
		return c.QuoteFont
	case types.Subquote:
		return c.SubquoteFont
	case types.Subquote2:
		return c.Subquote2Font
	case types.Tag:
		return c.TagFont
	case types.Tag2:
		return c.Tag2Font
	}
	return ""
}

// FontRatio returns the font size ratio for a field.
func (c *Config) FontRatio(f types.Field) float64 {
	switch f {
	case types.Quote:
		return c.QuoteFontRatio
	case types.Subquote:
		return c.SubquoteFontRatio
	case types.Subquote2:
		return c.Subquote2FontRatio
	case types.Tag:
		return c.TagFontRatio
	case types.Tag2:
		return c.Tag2FontRatio
	}
	return 0
}

// PositionRatio returns the default vertical position ratio for a field.
func (c *Config) PositionRatio(f types.Field) float64 {
	switch f {
	case types.Quote:
		return c.QuotePositionRatio
	case types.Subquote:
		return c.SubquotePositionRatio
	case types.Subquote2:
		return c.Subquote2PositionRatio
	case types.Tag:
		return c.TagPositionRatio
	case types.Tag2:
		return c.Tag2PositionRatio
	}
	return 0
}

// FontSize returns the pixel size of a field's font for an image of the given height.
func (c *Config) FontSize(f types.Field, height float64) float64 {
	return height * c.FontRatio(f) / 5000.0
}

// LoadFromFile reads every profile from a JSON file
func LoadFromFile(filename string) (Profiles, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	// Keys a profile leaves out keep their default value.
	profiles := make(Profiles, len(raw))
	for name, msg := range raw {
		cfg := *Default()
		if err := json.Unmarshal(msg, &cfg); err != nil {
			return nil, fmt.Errorf("%w: profile %q: %v", ErrCorrupt, name, err)
		}
		profiles[name] = cfg
	}
	return profiles, nil
}

// LoadProfile returns the named profile from filename. A missing file is
// created holding a single default profile under name.
func LoadProfile(filename, name string) (*Config, error) {
	if name == "" {
		name = DefaultProfile
	}

	profiles, err := LoadFromFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := (Profiles{name: *cfg}).SaveToFile(filename); err != nil {
			return cfg, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	cfg, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrProfileNotFound, name, profiles.Names())
	}
	return &cfg, nil
}

// Names returns the sorted profile names.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SaveToFile saves every profile to a JSON file
func (p Profiles) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ImageRatio[0] <= 0 || c.ImageRatio[1] <= 0 {
		return fmt.Errorf("image_ratio must be positive, got %v", c.ImageRatio)
	}

	if c.MinimumWidthLimit <= 0 {
		return fmt.Errorf("minimum_width_limit must be positive")
	}

	if c.MaximumWidthLimit < c.MinimumWidthLimit {
		return fmt.Errorf("maximum_width_limit (%.0f) must not be below minimum_width_limit (%.0f)",
			c.MaximumWidthLimit, c.MinimumWidthLimit)
	}

	if !c.ImageFormat.Supported() {
		return fmt.Errorf("image_format must be one of png, jpeg, webp, got %q", c.ImageFormat)
	}

	if c.PreviewHeight <= 0 {
		return fmt.Errorf("preview_height must be positive")
	}

	for _, f := range types.Fields {
		if c.FontRatio(f) <= 0 {
			return fmt.Errorf("%s_font_ratio must be positive", f)
		}
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./post_maker.config"
	}
	return filepath.Join(dir, "post_maker", "post_maker.config")
}
