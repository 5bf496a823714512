// Package client defines the vision model backend used for subject aware
// crop suggestions.
package client

import (
	"context"

	"github.com/menta2k/postmaker/pkg/types"
)

// VisionClient locates the dominant subject of a JPEG encoded image.
type VisionClient interface {
	LocateSubject(ctx context.Context, model, prompt string, jpeg []byte) (*types.SubjectResult, error)
}
