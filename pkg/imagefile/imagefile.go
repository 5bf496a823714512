// Package imagefile resolves image kinds from file content and lists the
// editable images of a directory.
package imagefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/h2non/filetype"

	"github.com/menta2k/postmaker/pkg/types"
)

// ErrUnsupported is returned for files that are not a supported image.
var ErrUnsupported = errors.New("imagefile: unsupported image type")

// Detect sniffs the file header at path. The extension is never consulted.
func Detect(path string) (types.ImageInfo, error) {
	kind, err := filetype.MatchFile(path)
	if err != nil {
		return types.ImageInfo{}, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	k := types.KindFromMIME(kind.MIME.Value)
	if !k.Supported() {
		return types.ImageInfo{}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
	return types.ImageInfo{Path: path, Kind: k}, nil
}

// ScanDir returns the supported images directly inside dir, sorted by file
// name. Subdirectories (including the export folder) are not visited.
func ScanDir(dir string) ([]types.ImageInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var images []types.ImageInfo
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := Detect(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		images = append(images, info)
	}

	sort.Slice(images, func(i, j int) bool {
		return filepath.Base(images[i].Path) < filepath.Base(images[j].Path)
	})
	return images, nil
}
