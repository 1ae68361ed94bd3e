package tracker_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/sensorable/autolabel/tracker"
)

func TestRunMenu(t *testing.T) {
	var got []tracker.Mode
	dispatch := func(ctx context.Context, mode tracker.Mode) error {
		got = append(got, mode)
		if mode == tracker.ModeCamera {
			return errors.New("Failed to access webcam")
		}
		return nil
	}

	var out bytes.Buffer
	in := strings.NewReader("1\n7\n2\n 1 \n3\n1\n")
	err := tracker.RunMenu(context.Background(), in, &out, tracker.DefaultMenu, dispatch)
	test.That(t, err, test.ShouldBeNil)

	// Nothing after the exit choice is dispatched.
	test.That(t, got, test.ShouldResemble, []tracker.Mode{tracker.ModeVideo, tracker.ModeCamera, tracker.ModeVideo})
	test.That(t, out.String(), test.ShouldContainSubstring, "1. Track from video file\n2. Track from built-in webcam\n3. Exit\n")
	test.That(t, out.String(), test.ShouldContainSubstring, "Enter choice (1, 2, 3): ")
	test.That(t, strings.Count(out.String(), "Invalid choice. Try again."), test.ShouldEqual, 1)
	test.That(t, out.String(), test.ShouldContainSubstring, "Tracking from camera failed: Failed to access webcam")
	test.That(t, out.String(), test.ShouldEndWith, "Exiting tracking loop.\n")
}

func TestRunMenuEndOfInput(t *testing.T) {
	calls := 0
	dispatch := func(ctx context.Context, mode tracker.Mode) error {
		calls++
		return nil
	}
	err := tracker.RunMenu(context.Background(), strings.NewReader("1"), &bytes.Buffer{}, tracker.DefaultMenu, dispatch)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calls, test.ShouldEqual, 1)
}

func TestRunMenuCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dispatch := func(ctx context.Context, mode tracker.Mode) error {
		t.Fatal("unexpected dispatch")
		return nil
	}
	err := tracker.RunMenu(ctx, strings.NewReader("1\n"), &bytes.Buffer{}, tracker.DefaultMenu, dispatch)
	test.That(t, err, test.ShouldBeNil)
}

func TestRunMenuCancelledWhileWaitingForInput(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- tracker.RunMenu(ctx, in, &out, tracker.DefaultMenu, func(ctx context.Context, mode tracker.Mode) error {
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("RunMenu did not return after the context was cancelled")
	}
	test.That(t, out.String(), test.ShouldContainSubstring, "Enter choice (1, 2, 3): ")
}

func TestModeFrom(t *testing.T) {
	for _, m := range []tracker.Mode{tracker.ModeVideo, tracker.ModeCamera, tracker.ModeScreen, tracker.ModeExit} {
		test.That(t, tracker.ModeFrom(m.String()), test.ShouldEqual, m)
	}
	test.That(t, tracker.ModeFrom(" Webcam "), test.ShouldEqual, tracker.ModeCamera)
	test.That(t, tracker.ModeFrom("youtube"), test.ShouldEqual, tracker.ModeUnknown)
	test.That(t, tracker.ModeUnknown.String(), test.ShouldEqual, "unknown")
}

func TestSummary(t *testing.T) {
	s := tracker.NewSummary([]string{"cat", "dog"})
	s.Add([]tracker.Detection{{ClassID: 1}, {ClassID: 7}})
	s.Add(nil)
	s.Add([]tracker.Detection{{ClassID: 1}, {ClassID: 0}})

	test.That(t, s.Frames, test.ShouldEqual, 3)
	test.That(t, s.Total(), test.ShouldEqual, 4)
	test.That(t, s.Name(7), test.ShouldEqual, "7")

	var out bytes.Buffer
	test.That(t, s.Print(&out), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldEqual,
		"\n[TRACKING SUMMARY]\n - dog: 2 detected\n - 7: 1 detected\n - cat: 1 detected\n")

	out.Reset()
	test.That(t, tracker.NewSummary(nil).Print(&out), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldEqual, "\n[TRACKING SUMMARY]\n - No objects detected.\n")
}
