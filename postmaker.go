// Package postmaker renders quote cards: a source photo is cropped to a
// fixed aspect ratio, darkened by a translucent layer and overlaid with a
// quote, two subquotes and two tags, then exported at a bounded width.
//
// Basic usage:
//
//	engine, err := postmaker.Load(config.GetConfigPath(), "default", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	c, err := engine.Open("photo.jpg")
//	if err != nil {
//		log.Fatal(err)
//	}
//	c.Properties().Update(func(p *properties.ImageProperties) {
//		p.SetText(types.Quote, "Stay hungry, stay foolish.")
//	})
//	c.RedrawToBuffer()
//
//	path, err := c.Save()
//
// The package consists of these components:
//
//  1. Config (internal/config): named rendering profiles
//  2. Render (pkg/render): layer, text layout and quote box drawing
//  3. Container (pkg/container): one open image, its sidecar and export
//  4. Worker (pkg/worker): serialized edit commands and bulk export
//  5. Detection (pkg/detection): optional subject aware cropping through a
//     local vision model
package postmaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/menta2k/postmaker/internal/config"
	"github.com/menta2k/postmaker/pkg/container"
	"github.com/menta2k/postmaker/pkg/fonts"
	"github.com/menta2k/postmaker/pkg/imagefile"
	"github.com/menta2k/postmaker/pkg/properties"
	"github.com/menta2k/postmaker/pkg/render"
	"github.com/menta2k/postmaker/pkg/worker"
)

// Version of the postmaker library
const Version = "1.0.0"

// Engine ties a profile, its fonts and a renderer together.
type Engine struct {
	renderer *render.Renderer
	logger   *slog.Logger
}

// New creates an engine for cfg, loading the fonts it names.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Engine{
		renderer: render.New(cfg, fonts.Load(cfg, logger), logger),
		logger:   logger,
	}, nil
}

// Load reads profile from the configuration file at path. A corrupt file
// is reported and the built-in defaults are used instead.
func Load(path, profile string, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.LoadProfile(path, profile)
	switch {
	case errors.Is(err, config.ErrCorrupt):
		logger.Warn("using default configuration", "path", path, "err", err)
		cfg = config.Default()
	case err != nil && cfg == nil:
		return nil, err
	case err != nil:
		// The defaults are usable even if they could not be written out.
		logger.Warn("failed to write default configuration", "path", path, "err", err)
	}
	return New(cfg, logger)
}

// Renderer returns the engine's renderer.
func (e *Engine) Renderer() *render.Renderer {
	return e.renderer
}

// Config returns the active profile.
func (e *Engine) Config() *config.Config {
	return e.renderer.Config()
}

// Open loads the image at path with its sidecar into a fresh property
// state. Use a Worker to drive several images from one session.
func (e *Engine) Open(path string) (*container.Container, error) {
	info, err := imagefile.Detect(path)
	if err != nil {
		return nil, err
	}
	cfg := e.Config()
	shared := properties.NewShared(properties.New())
	return container.Open(info, shared, e.renderer, e.logger, container.OpenOptions{
		TagDefault:  cfg.DefaultTag,
		Tag2Default: cfg.DefaultTag2,
	})
}

// NewWorker creates a command worker over a fresh shared property state.
// The caller runs it with Worker.Run.
func (e *Engine) NewWorker(s container.Suggester) (*worker.Worker, *properties.Shared) {
	shared := properties.NewShared(properties.New())
	return worker.New(shared, e.renderer, worker.Options{
		Suggester: s,
		Logger:    e.logger,
	}), shared
}

// ExportDir exports every captioned image directly inside dir.
func (e *Engine) ExportDir(ctx context.Context, dir string, progress func(worker.Progress)) (worker.Summary, error) {
	images, err := imagefile.ScanDir(dir)
	if err != nil {
		return worker.Summary{}, err
	}
	return worker.ExportAll(ctx, images, e.renderer, e.logger, progress)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
