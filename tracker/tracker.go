// Package tracker runs an object detector over a stream of frames, renders the detections and
// summarises what was seen.
//
// A Tracker holds one Detector and a dispatch table of pipelines keyed by Mode. Each pipeline
// opens a FrameSource and zero or more FrameSinks; the run ends at the end of the stream, when a
// sink or the caller cancels the context, or on error.
package tracker

import (
	"context"
	"io"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Pipeline is the dispatch table entry for one mode.
type Pipeline struct {
	Title string // Used in log messages, e.g. "video".
	Open  SourceOpener
	Sinks []SinkOpener
}

// Tracker dispatches tracking runs to registered pipelines.
type Tracker struct {
	detector Detector
	modes    map[Mode]Pipeline
	logger   golog.Logger
	out      io.Writer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger; the default discards all messages.
func WithLogger(logger golog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithOutput sets where summaries are printed; the default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(t *Tracker) { t.out = w }
}

// New returns a Tracker that uses det for all modes.
func New(det Detector, opts ...Option) *Tracker {
	t := &Tracker{
		detector: det,
		modes:    make(map[Mode]Pipeline),
		logger:   zap.NewNop().Sugar(),
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register sets the pipeline for mode, replacing any previous one.
func (t *Tracker) Register(mode Mode, p Pipeline) {
	if p.Title == "" {
		p.Title = mode.String()
	}
	t.modes[mode] = p
}

// Has reports whether a pipeline is registered for mode.
func (t *Tracker) Has(mode Mode) bool {
	_, ok := t.modes[mode]
	return ok
}

// Dispatch runs the pipeline registered for mode and prints the summary once it ends.
func (t *Tracker) Dispatch(ctx context.Context, mode Mode) (*Summary, error) {
	p, ok := t.modes[mode]
	if !ok || p.Open == nil {
		return nil, errors.Errorf("unsupported tracking mode %q", mode)
	}

	summary, err := t.run(ctx, p)
	if err != nil {
		return summary, err
	}
	if err := summary.Print(t.out); err != nil {
		return summary, errors.Wrap(err, "cannot print the tracking summary")
	}
	return summary, nil
}

func (t *Tracker) run(ctx context.Context, p Pipeline) (summary *Summary, err error) {
	src, err := p.Open(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open the %s source", p.Title)
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	// Sinks end the run by cancelling this context, e.g. on the quit key.
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	info := src.Info()
	sinks := make([]FrameSink, 0, len(p.Sinks))
	defer func() {
		for _, s := range sinks {
			err = multierr.Append(err, s.Close())
		}
	}()
	for _, open := range p.Sinks {
		s, err := open(ctx, info, quit)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %s output", p.Title)
		}
		sinks = append(sinks, s)
	}

	summary = NewSummary(t.detector.Names())
	t.logger.Infof("Tracking from %s... Press 'q' to quit.", p.Title)

	for ctx.Err() == nil {
		frame, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				break
			}
			return summary, errors.Wrapf(err, "failed to read a %s frame", p.Title)
		}

		detections, err := t.detector.Detect(ctx, frame)
		if err != nil {
			return summary, errors.Wrap(err, "detection failed")
		}
		summary.Add(detections)

		if len(sinks) == 0 {
			continue
		}
		annotated := Annotate(frame, detections)
		for _, s := range sinks {
			if err := s.Write(annotated); err != nil {
				return summary, errors.Wrapf(err, "failed to write a %s frame", p.Title)
			}
		}
	}

	t.logger.Infow("tracking ended", "mode", p.Title, "frames", summary.Frames,
		"detections", summary.Total())
	return summary, nil
}
