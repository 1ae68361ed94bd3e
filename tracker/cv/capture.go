// Package cv adapts OpenCV (through gocv) video capture, display windows and video writers to the
// tracker frame source and sink interfaces.
package cv

import (
	"context"
	"image"
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/sensorable/autolabel/tracker"
)

// CaptureSource reads frames from a gocv.VideoCapture.
type CaptureSource struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	info    tracker.StreamInfo
}

var _ tracker.FrameSource = (*CaptureSource)(nil)

// OpenVideo opens the video file at path.
func OpenVideo(path string) (*CaptureSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open video %q", path)
	}
	return newCaptureSource(capture, path)
}

// OpenCamera opens the camera with the given device index.
func OpenCamera(index int) (*CaptureSource, error) {
	capture, err := gocv.VideoCaptureDevice(index)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to access camera %d", index)
	}
	return newCaptureSource(capture, "camera")
}

func newCaptureSource(capture *gocv.VideoCapture, name string) (*CaptureSource, error) {
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Errorf("failed to open %s", name)
	}
	return &CaptureSource{
		capture: capture,
		frame:   gocv.NewMat(),
		info: tracker.StreamInfo{
			Width:  int(capture.Get(gocv.VideoCaptureFrameWidth)),
			Height: int(capture.Get(gocv.VideoCaptureFrameHeight)),
			FPS:    capture.Get(gocv.VideoCaptureFPS),
		},
	}, nil
}

// SourceOpener returns an opener for tracker pipelines that calls open.
func SourceOpener(open func() (*CaptureSource, error)) tracker.SourceOpener {
	return func(ctx context.Context) (tracker.FrameSource, error) {
		return open()
	}
}

// Info returns the frame size and rate reported by the capture device.
func (s *CaptureSource) Info() tracker.StreamInfo {
	return s.info
}

// Next reads and decodes the next frame. It returns io.EOF once no more frames can be read.
func (s *CaptureSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, io.EOF
	}
	return s.frame.ToImage()
}

// Close releases the capture device.
func (s *CaptureSource) Close() error {
	if err := s.frame.Close(); err != nil {
		s.capture.Close()
		return err
	}
	return s.capture.Close()
}
