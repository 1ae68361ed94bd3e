package tracker

import (
	"context"
	"image"
)

// StreamInfo describes the frames produced by a FrameSource.
type StreamInfo struct {
	Width  int
	Height int
	FPS    float64 // Zero if unknown.
}

// FrameSource produces a sequence of frames. Next returns io.EOF at the end of the stream.
type FrameSource interface {
	Info() StreamInfo
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// FrameSink consumes annotated frames, e.g. to display them or to encode them into a video.
type FrameSink interface {
	Write(img image.Image) error
	Close() error
}

// SourceOpener opens the frame source of a pipeline.
type SourceOpener func(ctx context.Context) (FrameSource, error)

// SinkOpener opens a sink for frames described by info. The sink may call quit to end the run,
// e.g. when the user presses the quit key in a display window.
type SinkOpener func(ctx context.Context, info StreamInfo, quit context.CancelFunc) (FrameSink, error)
