package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/menta2k/postmaker"
	"github.com/menta2k/postmaker/internal/config"
	"github.com/menta2k/postmaker/pkg/client"
	"github.com/menta2k/postmaker/pkg/container"
	"github.com/menta2k/postmaker/pkg/detection"
	"github.com/menta2k/postmaker/pkg/imagefile"
	"github.com/menta2k/postmaker/pkg/llamacpp"
	"github.com/menta2k/postmaker/pkg/ollama"
	"github.com/menta2k/postmaker/pkg/processing"
	"github.com/menta2k/postmaker/pkg/properties"
	"github.com/menta2k/postmaker/pkg/types"
	"github.com/menta2k/postmaker/pkg/vision"
	"github.com/menta2k/postmaker/pkg/worker"
)

type options struct {
	configPath string
	profile    string

	in        string
	dir       string
	exportAll bool

	text   map[types.Field]*string
	prefix string

	preview string
	save    bool
	clone   bool
	delete  bool

	smartCrop bool
	backend   string
	url       string
	model     string

	verbose bool
}

func main() {
	opts := options{text: map[types.Field]*string{}}

	flag.StringVar(&opts.configPath, "config", config.GetConfigPath(), "configuration file")
	flag.StringVar(&opts.profile, "profile", config.DefaultProfile, "configuration profile")

	flag.StringVar(&opts.in, "in", "", "image to edit (jpg/png/webp)")
	flag.StringVar(&opts.dir, "dir", "", "directory of images to list or export")
	flag.BoolVar(&opts.exportAll, "export-all", false, "export every captioned image in -dir")

	for _, f := range types.Fields {
		opts.text[f] = flag.String(f.String(), "", "text of the "+f.String()+" field")
	}
	flag.StringVar(&opts.prefix, "prefix", "", "export file name prefix")

	flag.StringVar(&opts.preview, "preview", "", "write the preview to this PNG file")
	flag.BoolVar(&opts.save, "save", false, "save properties and export the image")
	flag.BoolVar(&opts.clone, "clone", false, "duplicate the image and its properties")
	flag.BoolVar(&opts.delete, "delete", false, "delete the image, its properties and its export")

	flag.BoolVar(&opts.smartCrop, "smart-crop", false, "center the crop on the image subject")
	flag.StringVar(&opts.backend, "backend", "ollama", "subject finder: local, ollama or llamacpp")
	flag.StringVar(&opts.url, "url", "", "vision server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.StringVar(&opts.model, "model", "qwen2.5vl", "vision model name")

	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if opts.in == "" && opts.dir == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -in image.jpg [-quote text] [-save] | -dir photos [-export-all]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	engine, err := postmaker.Load(opts.configPath, opts.profile, logger)
	if err != nil {
		return err
	}

	if opts.dir != "" {
		if err := runDir(ctx, engine, opts, logger); err != nil {
			return err
		}
	}
	if opts.in == "" {
		return nil
	}

	var suggester container.Suggester
	if opts.smartCrop {
		suggester, err = newSuggester(opts, logger)
		if err != nil {
			return err
		}
	}
	return runImage(ctx, engine, suggester, opts, logger)
}

func newSuggester(opts options, logger *slog.Logger) (container.Suggester, error) {
	var (
		vc  client.VisionClient
		err error
	)
	switch opts.backend {
	case "local":
		return vision.New(), nil
	case "ollama":
		url := opts.url
		if url == "" {
			url = "http://localhost:11434"
		}
		vc, err = ollama.NewClient(url)
	case "llamacpp":
		vc, err = llamacpp.NewClient(opts.url)
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'local', 'ollama' or 'llamacpp')", opts.backend)
	}
	if err != nil {
		return nil, err
	}
	return detection.NewDetector(vc, opts.model, logger), nil
}

func runDir(ctx context.Context, engine *postmaker.Engine, opts options, logger *slog.Logger) error {
	if !opts.exportAll {
		images, err := imagefile.ScanDir(opts.dir)
		if err != nil {
			return err
		}
		for _, info := range images {
			_, err := os.Stat(properties.SidecarPath(info))
			fmt.Printf("%-5s %-40s captioned=%t\n", info.Kind, filepath.Base(info.Path), err == nil)
		}
		return nil
	}

	sum, err := engine.ExportDir(ctx, opts.dir, func(p worker.Progress) {
		name := filepath.Base(p.Image.Path)
		switch {
		case p.Err != nil:
			logger.Warn("export failed", "image", name, "err", p.Err)
		case p.Skipped != "":
			logger.Debug("skipped", "image", name, "reason", p.Skipped)
		default:
			logger.Info("wrote", "path", p.Path, "progress", fmt.Sprintf("%d/%d", p.Index+1, p.Total))
		}
	})
	logger.Info("export summary", "exported", sum.Exported, "skipped", sum.Skipped, "failed", sum.Failed)
	return err
}

func runImage(ctx context.Context, engine *postmaker.Engine, suggester container.Suggester, opts options, logger *slog.Logger) error {
	info, err := imagefile.Detect(opts.in)
	if err != nil {
		return err
	}

	w, shared := engine.NewWorker(suggester)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	s := &session{worker: w, logger: logger}
	err = s.edit(info, shared, opts)
	w.Close()
	if runErr := <-done; runErr != nil && !errors.Is(runErr, context.Canceled) {
		err = errors.Join(err, runErr)
	}
	return err
}

// session sends commands and waits for their outcome.
type session struct {
	worker *worker.Worker
	logger *slog.Logger
}

func (s *session) edit(info types.ImageInfo, shared *properties.Shared, opts options) error {
	s.worker.Send(worker.Command{Kind: worker.Open, Image: info})
	ev, err := s.await(worker.Buffer)
	if err != nil {
		return err
	}
	if ev.Buffer == nil {
		return fmt.Errorf("failed to open %s", filepath.Base(info.Path))
	}

	if opts.smartCrop {
		s.worker.Send(worker.Command{Kind: worker.SuggestCrop})
		if _, err := s.await(worker.Buffer); err != nil {
			s.logger.Warn("keeping current crop", "err", err)
		}
	}

	changed := false
	shared.Update(func(p *properties.ImageProperties) {
		flag.Visit(func(fl *flag.Flag) {
			for _, f := range types.Fields {
				if fl.Name == f.String() {
					p.SetText(f, *opts.text[f])
					changed = true
				}
			}
			if fl.Name == "prefix" {
				p.NamePrefix = opts.prefix
				p.IsSaved = false
				changed = true
			}
		})
	})
	if changed {
		s.worker.Send(worker.Command{Kind: worker.RedrawToBuffer})
	}

	s.worker.Send(worker.Command{Kind: worker.CheckSize})
	ev, err = s.await(worker.SizeChecked)
	if err != nil {
		return err
	}
	if ev.TooSmall {
		s.logger.Warn("image is narrower than the minimum export width", "image", filepath.Base(info.Path))
	}

	if opts.preview != "" {
		s.worker.Send(worker.Command{Kind: worker.Flush})
		ev, err := s.await(worker.Buffer)
		if err != nil {
			return err
		}
		if err := processing.NewProcessor().SaveImage(ev.Buffer, opts.preview, types.KindPNG); err != nil {
			return err
		}
		s.logger.Info("wrote", "path", opts.preview)
	}

	if opts.save {
		s.worker.Send(worker.Command{Kind: worker.Save})
		ev, err := s.await(worker.Saved)
		if err != nil {
			return err
		}
		s.logger.Info("wrote", "path", ev.Path)
	} else if !shared.Snapshot().IsSaved {
		s.logger.Info("changes not saved, pass -save to keep them")
	}

	if opts.clone {
		s.worker.Send(worker.Command{Kind: worker.Clone})
		ev, err := s.await(worker.Cloned)
		if err != nil {
			return err
		}
		s.logger.Info("cloned", "path", ev.Image.Path)
	}

	if opts.delete {
		s.worker.Send(worker.Command{Kind: worker.Delete})
		if _, err := s.await(worker.Deleted); err != nil {
			return err
		}
		s.logger.Info("deleted", "path", info.Path)
	}
	return nil
}

// await returns the next event of kind want. A Failed event ends the wait
// with its error.
func (s *session) await(want worker.EventKind) (worker.Event, error) {
	for ev := range s.worker.Events() {
		switch ev.Kind {
		case worker.Busy:
			s.logger.Debug(ev.Message, "command", ev.Command.String())
		case worker.Failed:
			return ev, fmt.Errorf("%s: %w", ev.Command, ev.Err)
		case want:
			return ev, nil
		}
	}
	return worker.Event{}, errors.New("worker stopped")
}
