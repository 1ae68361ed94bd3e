package cv

import (
	"context"
	"image"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/sensorable/autolabel/tracker"
)

// QuitKey is the key that ends a run from a display window.
const QuitKey = 'q'

// WindowSink shows frames in a window and polls the keyboard after each frame.
type WindowSink struct {
	window *gocv.Window
	quit   context.CancelFunc
}

var _ tracker.FrameSink = (*WindowSink)(nil)

// WindowOpener returns a sink opener that shows frames in a window with the given title.
func WindowOpener(title string) tracker.SinkOpener {
	return func(ctx context.Context, info tracker.StreamInfo, quit context.CancelFunc) (tracker.FrameSink, error) {
		return &WindowSink{window: gocv.NewWindow(title), quit: quit}, nil
	}
}

// Write shows img and cancels the run if the quit key was pressed.
func (s *WindowSink) Write(img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return errors.Wrap(err, "cannot convert the frame")
	}
	defer mat.Close()

	s.window.IMShow(mat)
	if s.window.WaitKey(1)&0xFF == QuitKey {
		s.quit()
	}
	return nil
}

// Close destroys the window.
func (s *WindowSink) Close() error {
	return s.window.Close()
}

// VideoSink encodes frames into a video file.
type VideoSink struct {
	writer *gocv.VideoWriter
	path   string
}

var _ tracker.FrameSink = (*VideoSink)(nil)

// Codec is the FourCC the output video is encoded with.
const Codec = "mp4v"

// defaultFPS is used when the source does not report a frame rate.
const defaultFPS = 30

// VideoOpener returns a sink opener that writes an mp4v video to path, using the frame size and
// rate of the source.
func VideoOpener(path string, logger golog.Logger) tracker.SinkOpener {
	return func(ctx context.Context, info tracker.StreamInfo, quit context.CancelFunc) (tracker.FrameSink, error) {
		fps := info.FPS
		if fps <= 0 {
			fps = defaultFPS
		}
		writer, err := gocv.VideoWriterFile(path, Codec, fps, info.Width, info.Height, true)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot create video %q", path)
		}
		if logger != nil {
			logger.Infof("Writing annotated video to %s", path)
		}
		return &VideoSink{writer: writer, path: path}, nil
	}
}

// Write appends img to the video.
func (s *VideoSink) Write(img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return errors.Wrap(err, "cannot convert the frame")
	}
	defer mat.Close()

	return s.writer.Write(mat)
}

// Close finalises the video file.
func (s *VideoSink) Close() error {
	return s.writer.Close()
}
