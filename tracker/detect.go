package tracker

import (
	"context"
	"image"
)

// Detection is a single object found in a frame.
type Detection struct {
	ClassID int
	Label   string
	Score   float64         // Confidence in [0.0, 1.0].
	Box     image.Rectangle // Absolute pixel coordinates in the frame.
}

// Detector finds objects in frames.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
	// Names returns the class names indexed by class ID.
	Names() []string
}
