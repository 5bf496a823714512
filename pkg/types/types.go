package types

import "strings"

// Box is a bounding box normalized to the [0,1] range.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Subject is the dominant subject a vision model located in an image.
// Cx and Cy are its normalized center.
type Subject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// SubjectResult is the parsed answer of a subject locating query.
type SubjectResult struct {
	Primary     Subject `json:"primary"`
	Description string  `json:"description"`
}

// ImageKind is the image format as detected from file content.
type ImageKind string

const (
	KindUnsupported ImageKind = ""
	KindJPEG        ImageKind = "jpeg"
	KindPNG         ImageKind = "png"
	KindWebP        ImageKind = "webp"
)

// KindFromMIME maps a sniffed MIME type to an ImageKind.
func KindFromMIME(mime string) ImageKind {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return KindJPEG
	case "image/png":
		return KindPNG
	case "image/webp":
		return KindWebP
	default:
		return KindUnsupported
	}
}

// Extension returns the file extension (without dot) used when writing this kind.
func (k ImageKind) Extension() string {
	switch k {
	case KindJPEG:
		return "jpg"
	case KindPNG:
		return "png"
	case KindWebP:
		return "webp"
	default:
		return "none"
	}
}

// Supported reports whether images of this kind can be decoded.
func (k ImageKind) Supported() bool {
	return k == KindJPEG || k == KindPNG || k == KindWebP
}

// ImageInfo identifies a source image on disk.
type ImageInfo struct {
	Path string    `json:"path"`
	Kind ImageKind `json:"kind"`
}

// Field is one of the text fields drawn on a card.
type Field int

const (
	Quote Field = iota
	Subquote
	Subquote2
	Tag
	Tag2
)

// Fields lists every text field in draw order.
var Fields = []Field{Quote, Subquote, Subquote2, Tag2, Tag}

func (f Field) String() string {
	switch f {
	case Quote:
		return "quote"
	case Subquote:
		return "subquote"
	case Subquote2:
		return "subquote2"
	case Tag:
		return "tag"
	case Tag2:
		return "tag2"
	default:
		return "unknown"
	}
}

// IsTag reports whether the field is right-anchored.
func (f Field) IsTag() bool {
	return f == Tag || f == Tag2
}
