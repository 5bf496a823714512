package properties

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/postmaker/internal/utils"
	"github.com/menta2k/postmaker/pkg/types"
)

// ErrCorrupt is returned when a sidecar file exists but cannot be parsed.
var ErrCorrupt = errors.New("properties: corrupt sidecar file")

// SidecarExt is the extension of per-image property files.
const SidecarExt = ".prop"

// File is the persisted sidecar form. Every field is optional so a file
// can override any subset of the live state.
type File struct {
	CropPosition          *[2]float64 `json:"crop_position,omitempty"`
	NamePrefix            *string     `json:"name_prefix,omitempty"`
	Quote                 *string     `json:"quote,omitempty"`
	Subquote              *string     `json:"subquote,omitempty"`
	Subquote2             *string     `json:"subquote2,omitempty"`
	Tag                   *string     `json:"tag,omitempty"`
	Tag2                  *string     `json:"tag2,omitempty"`
	QuotePosition         *float64    `json:"quote_position,omitempty"`
	SubquotePosition      *float64    `json:"subquote_position,omitempty"`
	Subquote2Position     *float64    `json:"subquote2_position,omitempty"`
	TagPosition           *float64    `json:"tag_position,omitempty"`
	Tag2Position          *float64    `json:"tag2_position,omitempty"`
	TranslucentLayerColor *[4]uint8   `json:"translucent_layer_color,omitempty"`
}

// FileFrom converts live state into its persisted form with every field
// populated. The crop position is only absent when no crop was applied.
func FileFrom(p *ImageProperties) File {
	f := File{
		NamePrefix:            ptr(p.NamePrefix),
		Quote:                 ptr(p.Quote),
		Subquote:              ptr(p.Subquote),
		Subquote2:             ptr(p.Subquote2),
		Tag:                   ptr(p.Tag),
		Tag2:                  ptr(p.Tag2),
		QuotePosition:         ptr(p.QuotePosition),
		SubquotePosition:      ptr(p.SubquotePosition),
		Subquote2Position:     ptr(p.Subquote2Position),
		TagPosition:           ptr(p.TagPosition),
		Tag2Position:          ptr(p.Tag2Position),
		TranslucentLayerColor: ptr(p.TranslucentLayerColor),
	}
	if p.CropPosition != nil {
		f.CropPosition = ptr(*p.CropPosition)
	}
	return f
}

func ptr[T any](v T) *T {
	return &v
}

// SidecarPath returns the property file path for an image: the image file
// name with its last dot replaced by a dash, plus SidecarExt. A sidecar in
// the older "<stem>.prop" layout is moved to the new path on first lookup.
func SidecarPath(info types.ImageInfo) string {
	dir := filepath.Dir(info.Path)
	path := filepath.Join(dir, utils.MangleName(info.Path)+SidecarExt)
	if utils.FileExists(path) {
		return path
	}

	legacy := filepath.Join(dir, utils.Stem(info.Path)+SidecarExt)
	if utils.FileExists(legacy) {
		if err := utils.CopyFile(legacy, path); err == nil {
			_ = os.Remove(legacy)
		}
	}
	return path
}

// LoadFile reads a sidecar. A missing file yields an empty File.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return File{}, nil
	}
	if err != nil {
		return File{}, fmt.Errorf("failed to read properties: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
	}
	return f, nil
}

// SaveFile writes a sidecar as JSON.
func SaveFile(path string, f File) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal properties: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write properties: %w", err)
	}
	return nil
}
