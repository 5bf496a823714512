// Package properties holds the live edit state of an open image and its
// persisted, partially populated sidecar form.
package properties

import (
	"sync"

	"github.com/menta2k/postmaker/pkg/types"
)

// ImageProperties is the fully populated edit state of one open image.
// Positions are vertical offsets in original image coordinates.
type ImageProperties struct {
	Info *types.ImageInfo

	OriginalDimension [2]float64 // decoded source size, set once at open
	Dimension         [2]float64 // current working buffer size
	CropPosition      *[2]float64

	NamePrefix string

	Quote     string
	Subquote  string
	Subquote2 string
	Tag       string
	Tag2      string

	QuotePosition     float64
	SubquotePosition  float64
	Subquote2Position float64
	TagPosition       float64
	Tag2Position      float64

	TranslucentLayerColor [4]uint8
	IsSaved               bool
}

// New returns an empty, saved state.
func New() ImageProperties {
	return ImageProperties{IsSaved: true}
}

// Text returns the text of a field.
func (p *ImageProperties) Text(f types.Field) string {
	switch f {
	case types.Quote:
		return p.Quote
	case types.Subquote:
		return p.Subquote
	case types.Subquote2:
		return p.Subquote2
	case types.Tag:
		return p.Tag
	case types.Tag2:
		return p.Tag2
	}
	return ""
}

// SetText replaces the text of a field and marks the state dirty.
func (p *ImageProperties) SetText(f types.Field, text string) {
	switch f {
	case types.Quote:
		p.Quote = text
	case types.Subquote:
		p.Subquote = text
	case types.Subquote2:
		p.Subquote2 = text
	case types.Tag:
		p.Tag = text
	case types.Tag2:
		p.Tag2 = text
	default:
		return
	}
	p.IsSaved = false
}

// Position returns the vertical position of a field in original space.
func (p *ImageProperties) Position(f types.Field) float64 {
	switch f {
	case types.Quote:
		return p.QuotePosition
	case types.Subquote:
		return p.SubquotePosition
	case types.Subquote2:
		return p.Subquote2Position
	case types.Tag:
		return p.TagPosition
	case types.Tag2:
		return p.Tag2Position
	}
	return 0
}

// SetPosition moves a field and marks the state dirty.
func (p *ImageProperties) SetPosition(f types.Field, y float64) {
	switch f {
	case types.Quote:
		p.QuotePosition = y
	case types.Subquote:
		p.SubquotePosition = y
	case types.Subquote2:
		p.Subquote2Position = y
	case types.Tag:
		p.TagPosition = y
	case types.Tag2:
		p.Tag2Position = y
	default:
		return
	}
	p.IsSaved = false
}

// SetCropPosition records an explicit crop origin in original space.
func (p *ImageProperties) SetCropPosition(x, y float64) {
	p.CropPosition = &[2]float64{x, y}
}

// Clone returns a deep copy; pointer fields are not shared.
func (p ImageProperties) Clone() ImageProperties {
	if p.Info != nil {
		info := *p.Info
		p.Info = &info
	}
	if p.CropPosition != nil {
		pos := *p.CropPosition
		p.CropPosition = &pos
	}
	return p
}

// Merge applies a persisted file onto the live state. Present fields win.
// Absent fields fall back to tagDefault/tag2Default for the tags, the
// current value for positions and the crop, layerDefault for the
// translucent color, and the empty string for the remaining texts.
// Merging the same file twice yields the same state as merging once.
func (p *ImageProperties) Merge(f File, tagDefault, tag2Default string, layerDefault [4]uint8) {
	if f.CropPosition != nil {
		pos := *f.CropPosition
		p.CropPosition = &pos
	}

	p.NamePrefix = valueOr(f.NamePrefix, "")
	p.Quote = valueOr(f.Quote, "")
	p.Subquote = valueOr(f.Subquote, "")
	p.Subquote2 = valueOr(f.Subquote2, "")
	p.Tag = valueOr(f.Tag, tagDefault)
	p.Tag2 = valueOr(f.Tag2, tag2Default)

	p.QuotePosition = valueOr(f.QuotePosition, p.QuotePosition)
	p.SubquotePosition = valueOr(f.SubquotePosition, p.SubquotePosition)
	p.Subquote2Position = valueOr(f.Subquote2Position, p.Subquote2Position)
	p.TagPosition = valueOr(f.TagPosition, p.TagPosition)
	p.Tag2Position = valueOr(f.Tag2Position, p.Tag2Position)

	p.TranslucentLayerColor = valueOr(f.TranslucentLayerColor, layerDefault)
}

func valueOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

// Shared is the live state guarded for concurrent access between the
// render worker and whatever edits it.
type Shared struct {
	mu    sync.RWMutex
	props ImageProperties
}

// NewShared wraps p for shared access.
func NewShared(p ImageProperties) *Shared {
	return &Shared{props: p}
}

// Snapshot returns a deep copy taken under the read lock.
func (s *Shared) Snapshot() ImageProperties {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.props.Clone()
}

// View calls fn with the state under the read lock. fn must not retain p.
func (s *Shared) View(fn func(p *ImageProperties)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.props)
}

// Update calls fn with the state under the write lock.
func (s *Shared) Update(fn func(p *ImageProperties)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.props)
}

// Dimension returns the current working buffer size.
func (s *Shared) Dimension() [2]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.props.Dimension
}
