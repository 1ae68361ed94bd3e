// Runs a YOLO detection model over a video file, a camera or the screen, shows the annotated
// frames and prints how many objects of each class were detected.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/sensorable/autolabel"
	"github.com/sensorable/autolabel/tracker"
	"github.com/sensorable/autolabel/tracker/cv"
	"github.com/sensorable/autolabel/tracker/onnx"
	"github.com/sensorable/autolabel/tracker/screen"
)

const (
	flagConfig     = "config"
	flagModel      = "model"
	flagNames      = "names"
	flagLibrary    = "onnxruntime"
	flagVideo      = "video"
	flagOutput     = "output"
	flagCamera     = "camera"
	flagConfidence = "confidence"
	flagNoDisplay  = "no-display"
	flagDebug      = "debug"
)

// windowTitle is the title of the display window.
const windowTitle = "YOLO Tracking"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	// After the first interrupt, a second one kills the process.
	context.AfterFunc(ctx, stop)

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		stop()
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "track",
		Usage: "detect and count objects in a video, camera or screen stream",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: flagModel, Usage: "the ONNX detection model `FILE`"},
			&cli.StringFlag{Name: flagNames, Usage: "the dataset manifest `FILE` with the class names"},
			&cli.StringFlag{Name: flagLibrary, Usage: "the onnxruntime shared library `FILE`"},
			&cli.StringFlag{Name: flagVideo, Usage: "the input video `FILE`"},
			&cli.StringFlag{Name: flagOutput, Usage: "the annotated output video `FILE` (empty disables it)"},
			&cli.IntFlag{Name: flagCamera, Usage: "the camera device `INDEX`"},
			&cli.Float64Flag{Name: flagConfidence, Usage: "the minimum detection score"},
			&cli.BoolFlag{Name: flagNoDisplay, Usage: "do not show the annotated frames"},
			&cli.BoolFlag{Name: flagDebug, Usage: "enable debug logging"},
		},
		Action: func(c *cli.Context) error {
			return withTracker(c, func(t *tracker.Tracker) error {
				return tracker.RunMenu(c.Context, os.Stdin, os.Stdout, tracker.DefaultMenu,
					func(ctx context.Context, mode tracker.Mode) error {
						_, err := t.Dispatch(ctx, mode)
						return err
					})
			})
		},
		Commands: []*cli.Command{
			{Name: "menu", Usage: "choose the source interactively", Action: func(c *cli.Context) error {
				return c.App.Action(c)
			}},
			modeCommand(tracker.ModeVideo, "track objects in the video file"),
			modeCommand(tracker.ModeCamera, "track objects in the camera stream"),
			modeCommand(tracker.ModeScreen, "track objects on the screen"),
		},
	}
}

func modeCommand(mode tracker.Mode, usage string) *cli.Command {
	return &cli.Command{
		Name:  mode.String(),
		Usage: usage,
		Action: func(c *cli.Context) error {
			return withTracker(c, func(t *tracker.Tracker) error {
				_, err := t.Dispatch(c.Context, mode)
				return err
			})
		},
	}
}

// withTracker loads the configuration and the model, then calls f with a tracker that has all
// modes registered.
func withTracker(c *cli.Context, f func(t *tracker.Tracker) error) (err error) {
	var logger golog.Logger
	if c.Bool(flagDebug) {
		logger = golog.NewDebugLogger("track")
	} else {
		logger = golog.NewDevelopmentLogger("track")
	}

	cfg, err := loadConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	applyFlags(c, &cfg)
	logger.Debugw("configuration", "config", cfg)

	manifest, err := autolabel.ReadManifest(cfg.NamesPath)
	if err != nil {
		return errors.Wrap(err, "cannot load the class names")
	}
	det, err := onnx.NewDetector(onnx.Config{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.LibraryPath,
		Names:       manifest.Names,
		InputSize:   cfg.InputSize,
		Confidence:  cfg.Confidence,
		IOU:         cfg.IOU,
	})
	if err != nil {
		return errors.Wrapf(err, "cannot load the model %q", cfg.ModelPath)
	}
	defer func() {
		if cerr := det.Close(); err == nil {
			err = cerr
		}
	}()

	t := tracker.New(det, tracker.WithLogger(logger))
	register(t, cfg, logger)
	return f(t)
}

// register adds the video, camera and screen pipelines for cfg.
func register(t *tracker.Tracker, cfg tracker.Config, logger golog.Logger) {
	var display []tracker.SinkOpener
	if cfg.Display {
		display = append(display, cv.WindowOpener(windowTitle))
	}

	videoSinks := display
	if cfg.OutputVideo != "" {
		videoSinks = append(append([]tracker.SinkOpener{}, display...), cv.VideoOpener(cfg.OutputVideo, logger))
	}
	t.Register(tracker.ModeVideo, tracker.Pipeline{
		Title: "video file",
		Open: cv.SourceOpener(func() (*cv.CaptureSource, error) {
			return cv.OpenVideo(cfg.VideoPath)
		}),
		Sinks: videoSinks,
	})
	t.Register(tracker.ModeCamera, tracker.Pipeline{
		Title: "webcam",
		Open: cv.SourceOpener(func() (*cv.CaptureSource, error) {
			return cv.OpenCamera(cfg.CameraIndex)
		}),
		Sinks: display,
	})
	t.Register(tracker.ModeScreen, tracker.Pipeline{
		Title: "screen",
		Open:  screen.SourceOpener(cfg.Screen),
		Sinks: display,
	})
}
