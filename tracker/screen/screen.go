// Package screen captures a region of the desktop as a tracker frame source. Frames are grabbed by
// an ffmpeg child process that writes raw RGBA video to a pipe.
package screen

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/sensorable/autolabel/tracker"
)

const bytesPerPixel = 4

// FFmpeg is the ffmpeg executable that is started to capture the screen.
var FFmpeg = "ffmpeg"

// Source reads raw RGBA frames of a fixed size from a stream.
type Source struct {
	r    io.ReadCloser
	info tracker.StreamInfo
	buf  []byte
	cmd  *exec.Cmd
}

var _ tracker.FrameSource = (*Source)(nil)

// Open starts capturing the region described by cfg. The capture stops when Close is called or ctx
// is done.
func Open(ctx context.Context, cfg tracker.ScreenConfig) (*Source, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.Errorf("invalid screen region %dx%d", cfg.Width, cfg.Height)
	}
	args, err := grabArgs(runtime.GOOS, cfg)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, FFmpeg, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to ffmpeg")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "cannot start ffmpeg")
	}

	s := newSource(stdout, cfg.Width, cfg.Height, cfg.FPS)
	s.cmd = cmd
	return s, nil
}

// SourceOpener returns an opener for tracker pipelines that captures the region in cfg.
func SourceOpener(cfg tracker.ScreenConfig) tracker.SourceOpener {
	return func(ctx context.Context) (tracker.FrameSource, error) {
		return Open(ctx, cfg)
	}
}

func newSource(r io.ReadCloser, width, height int, fps float64) *Source {
	return &Source{
		r:    r,
		info: tracker.StreamInfo{Width: width, Height: height, FPS: fps},
		buf:  make([]byte, width*height*bytesPerPixel),
	}
}

// grabArgs returns the ffmpeg arguments that capture the region in cfg on the given OS.
func grabArgs(goos string, cfg tracker.ScreenConfig) ([]string, error) {
	fps := cfg.FPS
	if fps <= 0 {
		fps = 15
	}
	rate := strconv.FormatFloat(fps, 'f', -1, 64)
	size := fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)

	var input []string
	switch goos {
	case "linux", "freebsd", "openbsd":
		display := cfg.Display
		if display == "" {
			display = ":0.0"
		}
		input = []string{
			"-f", "x11grab",
			"-framerate", rate,
			"-video_size", size,
			"-i", fmt.Sprintf("%s+%d,%d", display, cfg.X, cfg.Y),
		}
	case "windows":
		input = []string{
			"-f", "gdigrab",
			"-framerate", rate,
			"-offset_x", strconv.Itoa(cfg.X),
			"-offset_y", strconv.Itoa(cfg.Y),
			"-video_size", size,
			"-i", "desktop",
		}
	case "darwin":
		// avfoundation always grabs the whole screen, so the region is cropped afterwards.
		input = []string{
			"-f", "avfoundation",
			"-framerate", rate,
			"-capture_cursor", "1",
			"-i", "1:none",
			"-vf", fmt.Sprintf("crop=%d:%d:%d:%d", cfg.Width, cfg.Height, cfg.X, cfg.Y),
		}
	default:
		return nil, errors.Errorf("screen capture is not supported on %s", goos)
	}

	args := append([]string{"-loglevel", "error"}, input...)
	return append(args,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	), nil
}

// Info returns the region size and the capture rate.
func (s *Source) Info() tracker.StreamInfo {
	return s.info
}

// Next returns the next frame. It returns io.EOF when the stream ends, including in the middle of a
// frame.
func (s *Source) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(s.r, s.buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	pix := make([]byte, len(s.buf))
	copy(pix, s.buf)
	return &image.RGBA{
		Pix:    pix,
		Stride: s.info.Width * bytesPerPixel,
		Rect:   image.Rect(0, 0, s.info.Width, s.info.Height),
	}, nil
}

// Close stops the capture.
func (s *Source) Close() error {
	err := s.r.Close()
	if s.cmd != nil && s.cmd.Process != nil {
		// ffmpeg exits with an error once it has been killed, so only the kill is reported.
		err = multierr.Append(err, ignoreDone(s.cmd.Process.Kill()))
		_ = s.cmd.Wait()
	}
	return err
}

func ignoreDone(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
