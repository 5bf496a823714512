package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/menta2k/postmaker/internal/utils"
	"github.com/menta2k/postmaker/pkg/container"
	"github.com/menta2k/postmaker/pkg/properties"
	"github.com/menta2k/postmaker/pkg/render"
	"github.com/menta2k/postmaker/pkg/types"
)

// Progress reports one image of a bulk export.
type Progress struct {
	Index   int
	Total   int
	Image   types.ImageInfo
	Path    string // export path, empty when skipped
	Skipped string // reason, empty when exported
	Err     error
}

// Summary counts the outcome of a bulk export.
type Summary struct {
	Exported int
	Skipped  int
	Failed   int
}

// ExportAll saves every image that has a readable sidecar with a non-empty
// quote. Images are handled one after another; ctx is checked between
// images only, so a cancelled export never leaves a half written file.
// Per-image failures are collected and returned together.
func ExportAll(ctx context.Context, images []types.ImageInfo, r *render.Renderer, logger *slog.Logger, progress func(Progress)) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if progress == nil {
		progress = func(Progress) {}
	}

	var (
		sum  Summary
		errs []error
	)
	for i, info := range images {
		if err := ctx.Err(); err != nil {
			logger.Info("export cancelled", "done", i, "total", len(images))
			return sum, errors.Join(append(errs, err)...)
		}

		p := Progress{Index: i, Total: len(images), Image: info}
		path, reason, err := exportOne(info, r, logger)
		switch {
		case err != nil:
			sum.Failed++
			p.Err = err
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(info.Path), err))
		case reason != "":
			sum.Skipped++
			p.Skipped = reason
			logger.Debug("skipped", "image", filepath.Base(info.Path), "reason", reason)
		default:
			sum.Exported++
			p.Path = path
		}
		progress(p)
	}

	logger.Info("export finished", "exported", sum.Exported, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum, errors.Join(errs...)
}

func exportOne(info types.ImageInfo, r *render.Renderer, logger *slog.Logger) (string, string, error) {
	sidecar := properties.SidecarPath(info)
	if !utils.FileExists(sidecar) {
		return "", "no properties file", nil
	}
	file, err := properties.LoadFile(sidecar)
	if err != nil {
		return "", "unreadable properties file", nil
	}
	if file.Quote == nil || strings.TrimSpace(*file.Quote) == "" {
		return "", "empty quote", nil
	}

	shared := properties.NewShared(properties.New())
	c, err := container.New(info, shared, r, logger)
	if err != nil {
		return "", "", err
	}
	shared.Update(func(p *properties.ImageProperties) {
		p.Merge(file, "", "", r.Config().ColorLayer)
	})

	path, err := c.Save()
	return path, "", err
}
