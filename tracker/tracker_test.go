package tracker_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/sensorable/autolabel/tracker"
)

// fakeSource yields n solid frames, then io.EOF.
type fakeSource struct {
	n, read int
	closed  bool
	err     error // Returned instead of the frame after n reads if set.
}

func (s *fakeSource) Info() tracker.StreamInfo {
	return tracker.StreamInfo{Width: 32, Height: 24, FPS: 30}
}

func (s *fakeSource) Next(ctx context.Context) (image.Image, error) {
	if s.read >= s.n {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	s.read++
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

// fakeDetector returns the detections of frame i from perFrame, cycling.
type fakeDetector struct {
	perFrame [][]tracker.Detection
	calls    int
}

func (d *fakeDetector) Detect(ctx context.Context, img image.Image) ([]tracker.Detection, error) {
	if len(d.perFrame) == 0 {
		return nil, nil
	}
	dets := d.perFrame[d.calls%len(d.perFrame)]
	d.calls++
	return dets, nil
}

func (d *fakeDetector) Names() []string { return []string{"cat", "dog"} }

// fakeSink records frames and calls quit after quitAfter frames if quitAfter > 0.
type fakeSink struct {
	info      tracker.StreamInfo
	frames    []image.Image
	quitAfter int
	quit      context.CancelFunc
	closed    bool
}

func (s *fakeSink) Write(img image.Image) error {
	s.frames = append(s.frames, img)
	if s.quitAfter > 0 && len(s.frames) >= s.quitAfter {
		s.quit()
	}
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSink) opener() tracker.SinkOpener {
	return func(ctx context.Context, info tracker.StreamInfo, quit context.CancelFunc) (tracker.FrameSink, error) {
		s.info = info
		s.quit = quit
		return s, nil
	}
}

func sourceOpener(src tracker.FrameSource) tracker.SourceOpener {
	return func(ctx context.Context) (tracker.FrameSource, error) { return src, nil }
}

var (
	cat = tracker.Detection{ClassID: 0, Label: "cat", Score: 0.9, Box: image.Rect(2, 2, 10, 10)}
	dog = tracker.Detection{ClassID: 1, Label: "dog", Score: 0.8, Box: image.Rect(12, 4, 20, 20)}
)

func TestDispatchRunsToEndOfStream(t *testing.T) {
	src := &fakeSource{n: 3}
	det := &fakeDetector{perFrame: [][]tracker.Detection{{dog}, {cat, dog}, nil}}
	sink := &fakeSink{}
	var out bytes.Buffer

	tr := tracker.New(det, tracker.WithLogger(golog.NewTestLogger(t)), tracker.WithOutput(&out))
	tr.Register(tracker.ModeVideo, tracker.Pipeline{Open: sourceOpener(src), Sinks: []tracker.SinkOpener{sink.opener()}})

	summary, err := tr.Dispatch(context.Background(), tracker.ModeVideo)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Frames, test.ShouldEqual, 3)
	test.That(t, summary.Count(0), test.ShouldEqual, 1)
	test.That(t, summary.Count(1), test.ShouldEqual, 2)
	test.That(t, sink.frames, test.ShouldHaveLength, 3)
	test.That(t, sink.info, test.ShouldResemble, src.Info())
	test.That(t, src.closed, test.ShouldBeTrue)
	test.That(t, sink.closed, test.ShouldBeTrue)
	test.That(t, out.String(), test.ShouldEqual,
		"\n[TRACKING SUMMARY]\n - dog: 2 detected\n - cat: 1 detected\n")
}

func TestDispatchQuitFromSink(t *testing.T) {
	src := &fakeSource{n: 100}
	sink := &fakeSink{quitAfter: 4}
	tr := tracker.New(&fakeDetector{perFrame: [][]tracker.Detection{{cat}}}, tracker.WithOutput(io.Discard))
	tr.Register(tracker.ModeCamera, tracker.Pipeline{Open: sourceOpener(src), Sinks: []tracker.SinkOpener{sink.opener()}})

	summary, err := tr.Dispatch(context.Background(), tracker.ModeCamera)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Frames, test.ShouldEqual, 4)
	test.That(t, src.read, test.ShouldEqual, 4)
	test.That(t, src.closed, test.ShouldBeTrue)
}

func TestDispatchCancelledContext(t *testing.T) {
	src := &fakeSource{n: 10}
	var out bytes.Buffer
	tr := tracker.New(&fakeDetector{}, tracker.WithOutput(&out))
	tr.Register(tracker.ModeScreen, tracker.Pipeline{Open: sourceOpener(src)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := tr.Dispatch(ctx, tracker.ModeScreen)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Frames, test.ShouldEqual, 0)
	test.That(t, out.String(), test.ShouldContainSubstring, "No objects detected.")
}

func TestDispatchErrors(t *testing.T) {
	tr := tracker.New(&fakeDetector{}, tracker.WithOutput(io.Discard))

	_, err := tr.Dispatch(context.Background(), tracker.ModeVideo)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported tracking mode")

	tr.Register(tracker.ModeCamera, tracker.Pipeline{
		Open: func(ctx context.Context) (tracker.FrameSource, error) {
			return nil, errors.New("no device")
		},
	})
	test.That(t, tr.Has(tracker.ModeCamera), test.ShouldBeTrue)
	_, err = tr.Dispatch(context.Background(), tracker.ModeCamera)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to open the camera source")

	src := &fakeSource{n: 1, err: errors.New("decoder broke")}
	tr.Register(tracker.ModeVideo, tracker.Pipeline{Open: sourceOpener(src)})
	summary, err := tr.Dispatch(context.Background(), tracker.ModeVideo)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "decoder broke")
	test.That(t, summary.Frames, test.ShouldEqual, 1)
	test.That(t, src.closed, test.ShouldBeTrue)
}

func TestAnnotate(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	d := tracker.Detection{Label: "cat", Score: 0.5, Box: image.Rect(10, 20, 50, 60)}

	out := tracker.Annotate(img, []tracker.Detection{d})
	test.That(t, out.Bounds(), test.ShouldResemble, img.Bounds())

	r, g, b, _ := out.At(30, 20).RGBA()
	test.That(t, r>>8, test.ShouldBeLessThan, 64)
	test.That(t, g>>8, test.ShouldBeGreaterThan, 192)
	test.That(t, b>>8, test.ShouldBeLessThan, 64)

	// The inside of the box and the source image stay untouched.
	test.That(t, color.RGBAModel.Convert(out.At(30, 40)), test.ShouldResemble, white)
	test.That(t, img.RGBAAt(30, 20), test.ShouldResemble, white)
}
