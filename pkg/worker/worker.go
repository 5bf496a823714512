// Package worker runs every image operation on one goroutine, in the order
// the commands were sent, so the working image and the shared properties
// are never mutated concurrently by the pipeline.
package worker

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"github.com/menta2k/postmaker/pkg/container"
	"github.com/menta2k/postmaker/pkg/properties"
	"github.com/menta2k/postmaker/pkg/render"
	"github.com/menta2k/postmaker/pkg/types"
)

// ErrNoSuggester is reported for SuggestCrop when no suggester is configured.
var ErrNoSuggester = errors.New("worker: no crop suggester configured")

// CommandKind selects what a Command does.
type CommandKind int

const (
	// Open loads Command.Image and redraws it.
	Open CommandKind = iota
	// ChangeCrop re-crops the open image at Command.Crop (original space).
	ChangeCrop
	// RedrawToBuffer renders the current properties onto the working copy.
	RedrawToBuffer
	// Flush publishes the rendered buffer.
	Flush
	// Save writes the sidecar and the export.
	Save
	// Clone copies the open image and its sidecar.
	Clone
	// Delete removes the open image, its sidecar and its export.
	Delete
	// CheckSize reports whether the open image is too small.
	CheckSize
	// SuggestCrop crops the open image around its detected subject.
	SuggestCrop
)

var commandNames = map[CommandKind]string{
	Open:           "open",
	ChangeCrop:     "change_crop",
	RedrawToBuffer: "redraw",
	Flush:          "flush",
	Save:           "save",
	Clone:          "clone",
	Delete:         "delete",
	CheckSize:      "check_size",
	SuggestCrop:    "suggest_crop",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is one unit of work.
type Command struct {
	Kind  CommandKind
	Image types.ImageInfo // Open
	Crop  [2]float64      // ChangeCrop

	// Tag defaults for Open. Nil carries the tags of the previously open
	// image over, or uses the configured defaults when nothing was open.
	TagDefault  *string
	Tag2Default *string
}

// EventKind identifies an Event.
type EventKind int

const (
	// Busy is advisory: a slow operation started (Message says which).
	Busy EventKind = iota
	// Idle follows Busy once the operation finished.
	Idle
	// Buffer carries a rendered preview, or nil when nothing is open.
	Buffer
	// Saved carries the export path.
	Saved
	// Cloned carries the new image.
	Cloned
	// Deleted carries the removed image.
	Deleted
	// SizeChecked carries TooSmall.
	SizeChecked
	// Failed carries the error of a command.
	Failed
)

// Event is published by the worker. Fields are set per kind.
type Event struct {
	Kind     EventKind
	Command  CommandKind
	Message  string
	Buffer   *image.NRGBA
	Image    *types.ImageInfo
	Path     string
	TooSmall bool
	Err      error
}

// Worker owns the open image container.
type Worker struct {
	commands chan Command
	events   chan Event
	done     chan struct{}

	props     *properties.Shared
	renderer  *render.Renderer
	suggester container.Suggester
	logger    *slog.Logger

	current *container.Container
}

// Options configures a Worker.
type Options struct {
	Suggester container.Suggester
	Logger    *slog.Logger
	// QueueSize bounds pending commands and undelivered events.
	QueueSize int
}

// New creates a worker sharing props with its callers.
func New(props *properties.Shared, r *render.Renderer, opts Options) *Worker {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	return &Worker{
		commands:  make(chan Command, opts.QueueSize),
		events:    make(chan Event, opts.QueueSize),
		done:      make(chan struct{}),
		props:     props,
		renderer:  r,
		suggester: opts.Suggester,
		logger:    opts.Logger,
	}
}

// Send enqueues a command. It blocks only when the queue is full, and
// drops the command once Run has returned.
func (w *Worker) Send(cmd Command) {
	select {
	case w.commands <- cmd:
	case <-w.done:
		w.logger.Debug("worker stopped, dropping command", "command", cmd.Kind.String())
	}
}

// Close stops accepting commands; Run returns once the queue is drained.
func (w *Worker) Close() {
	close(w.commands)
}

// Events returns the event stream. It is closed when Run returns.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Run processes commands one at a time until ctx is done or Close is called.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.events)
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				return nil
			}
			w.handle(ctx, cmd)
		}
	}
}

// emit never blocks; events nobody reads are dropped.
func (w *Worker) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.logger.Debug("event dropped", "kind", ev.Kind, "command", ev.Command.String())
	}
}

func (w *Worker) fail(cmd CommandKind, err error) {
	w.logger.Warn("command failed", "command", cmd.String(), "err", err)
	w.emit(Event{Kind: Failed, Command: cmd, Err: err})
}

func (w *Worker) busy(cmd CommandKind, msg string) func() {
	w.emit(Event{Kind: Busy, Command: cmd, Message: msg})
	return func() { w.emit(Event{Kind: Idle, Command: cmd}) }
}

func (w *Worker) handle(ctx context.Context, cmd Command) {
	w.logger.Debug("command", "kind", cmd.Kind.String())

	if cmd.Kind != Open && cmd.Kind != Flush && w.current == nil {
		w.fail(cmd.Kind, container.ErrNoImage)
		return
	}

	switch cmd.Kind {
	case Open:
		done := w.busy(cmd.Kind, "Loading...")
		w.open(cmd)
		done()
		w.flush()

	case ChangeCrop:
		done := w.busy(cmd.Kind, "Loading...")
		w.current.ApplyCropPosition(cmd.Crop[0], cmd.Crop[1])
		w.current.ApplyResize()
		w.current.RedrawToBuffer()
		done()
		w.flush()

	case RedrawToBuffer:
		w.current.RedrawToBuffer()

	case Flush:
		w.flush()

	case Save:
		done := w.busy(cmd.Kind, "Saving...")
		path, err := w.current.Save()
		done()
		if err != nil {
			w.fail(cmd.Kind, err)
			return
		}
		w.emit(Event{Kind: Saved, Command: cmd.Kind, Path: path})

	case Clone:
		done := w.busy(cmd.Kind, "Cloning...")
		info, err := w.current.CloneImg()
		done()
		if err != nil {
			w.fail(cmd.Kind, err)
		}
		if info != nil {
			w.emit(Event{Kind: Cloned, Command: cmd.Kind, Image: info})
		}

	case Delete:
		done := w.busy(cmd.Kind, "Deleting...")
		info := w.props.Snapshot().Info
		err := w.current.Delete()
		w.current = nil
		done()
		if err != nil {
			w.fail(cmd.Kind, err)
		}
		w.emit(Event{Kind: Deleted, Command: cmd.Kind, Image: info})
		w.flush()

	case CheckSize:
		w.emit(Event{Kind: SizeChecked, Command: cmd.Kind, TooSmall: w.current.IsTooSmall()})

	case SuggestCrop:
		if w.suggester == nil {
			w.fail(cmd.Kind, ErrNoSuggester)
			return
		}
		done := w.busy(cmd.Kind, "Detecting...")
		err := w.current.ApplySubjectCrop(ctx, w.suggester)
		if err == nil {
			w.current.ApplyResize()
			w.current.RedrawToBuffer()
		}
		done()
		if err != nil {
			w.fail(cmd.Kind, err)
			return
		}
		w.flush()

	default:
		w.logger.Warn("unknown command", "kind", int(cmd.Kind))
	}
}

func (w *Worker) open(cmd Command) {
	cfg := w.renderer.Config()
	tag, tag2 := cfg.DefaultTag, cfg.DefaultTag2
	if w.current != nil {
		w.props.View(func(p *properties.ImageProperties) {
			tag, tag2 = p.Tag, p.Tag2
		})
	}
	if cmd.TagDefault != nil {
		tag = *cmd.TagDefault
	}
	if cmd.Tag2Default != nil {
		tag2 = *cmd.Tag2Default
	}

	c, err := container.Open(cmd.Image, w.props, w.renderer, w.logger, container.OpenOptions{
		TagDefault:  tag,
		Tag2Default: tag2,
	})
	if err != nil {
		w.current = nil
		w.fail(cmd.Kind, err)
		return
	}
	w.current = c
}

func (w *Worker) flush() {
	if w.current == nil {
		w.emit(Event{Kind: Buffer, Command: Flush})
		return
	}
	w.emit(Event{Kind: Buffer, Command: Flush, Buffer: w.current.Buffer()})
}
