// Package onnx implements tracker.Detector with a YOLO detection model exported to ONNX and run
// through onnxruntime.
package onnx

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/sensorable/autolabel/tracker"
)

// Config describes the model and its postprocessing.
type Config struct {
	ModelPath   string
	LibraryPath string   // The onnxruntime shared library; empty uses the onnxruntime_go default.
	Names       []string // Class names, indexed by class ID. Their number fixes the output shape.
	InputSize   int      // Side length of the square model input.
	NumAnchors  int      // Zero derives the count from InputSize for strides 8, 16 and 32.
	Confidence  float64
	IOU         float64
	InputName   string // Defaults to "images".
	OutputName  string // Defaults to "output0".
}

// anchorCount returns the number of predictions a YOLOv8 head makes for a square input of side
// size.
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		n += (size / stride) * (size / stride)
	}
	return n
}

// Detector runs a YOLO ONNX model. It is safe for concurrent use, although calls are serialised
// because the tensors are shared.
type Detector struct {
	mu      sync.Mutex
	cfg     Config
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

var _ tracker.Detector = (*Detector)(nil)

// NewDetector initialises onnxruntime and loads the model.
func NewDetector(cfg Config) (*Detector, error) {
	if len(cfg.Names) == 0 {
		return nil, errors.New("the model needs at least one class name")
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	if cfg.NumAnchors <= 0 {
		cfg.NumAnchors = anchorCount(cfg.InputSize)
	}
	if cfg.InputName == "" {
		cfg.InputName = "images"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "output0"
	}

	if !ort.IsInitialized() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "failed to initialize the ONNX environment")
		}
	}

	size := int64(cfg.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create the input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](
		ort.NewShape(1, int64(4+len(cfg.Names)), int64(cfg.NumAnchors)))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "failed to create the output tensor")
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "failed to create the ONNX session for %q", cfg.ModelPath)
	}

	return &Detector{cfg: cfg, session: session, input: input, output: output}, nil
}

// Names returns the class names.
func (d *Detector) Names() []string {
	return d.cfg.Names
}

// Detect runs the model on img and returns the detections after non-maximum suppression.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]tracker.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	boxed, lb := letterboxImage(img, d.cfg.InputSize)
	fillTensor(d.input.GetData(), boxed)
	if err := d.session.Run(); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	cands := decodeOutput(d.output.GetData(), len(d.cfg.Names), d.cfg.NumAnchors, d.cfg.Confidence)
	return toDetections(nms(cands, d.cfg.IOU), lb, img.Bounds(), d.cfg.Names), nil
}

// toDetections maps candidates back onto the source image. Boxes that end up outside the image
// are dropped.
func toDetections(cands []candidate, lb letterbox, bounds image.Rectangle,
	names []string) []tracker.Detection {

	dets := make([]tracker.Detection, 0, len(cands))
	for _, c := range cands {
		box := lb.toSource(c.x1, c.y1, c.x2, c.y2, bounds)
		if box.Empty() {
			continue
		}
		dets = append(dets, tracker.Detection{
			ClassID: c.class,
			Label:   names[c.class],
			Score:   c.score,
			Box:     box,
		})
	}
	return dets
}

// Close releases the session and the tensors. The onnxruntime environment stays initialised.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.session != nil {
		err = d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
	return err
}
