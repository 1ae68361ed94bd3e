package autolabel

// YOLO label generation.

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Box is a bounding box normalised to the image size: the center and the extent, each in
// [0.0, 1.0].
type Box struct {
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64
}

// clamp limits the box width and height to at most the full image.
func (b Box) clamp() Box {
	b.Width = math.Min(b.Width, 1.0)
	b.Height = math.Min(b.Height, 1.0)
	return b
}

// Corners returns the normalised x1, y1, x2, y2 offsets from the top-left corner.
func (b Box) Corners() [4]float64 {
	return [4]float64{
		b.XCenter - b.Width/2,
		b.YCenter - b.Height/2,
		b.XCenter + b.Width/2,
		b.YCenter + b.Height/2,
	}
}

// Record is a single YOLO label line.
type Record struct {
	ClassIndex int
	Box        Box
}

// String formats the record as "<class_index> <x_center> <y_center> <width> <height>", with
// the shortest float representation for each coordinate.
func (r Record) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return fmt.Sprintf("%d %s %s %s %s", r.ClassIndex,
		f(r.Box.XCenter), f(r.Box.YCenter), f(r.Box.Width), f(r.Box.Height))
}

// LabeledImage links an image to the label file that was written for it.
type LabeledImage struct {
	ImagePath string
	LabelPath string
	Class     string
	Record    Record
}

// Report summarises a labeling run.
type Report struct {
	Classes  []string
	Labeled  []LabeledImage
	Skipped  int   // Files passed over because of their extension.
	Failures error // Per-image failures, combined with multierr.
}

// DiscoverClasses returns the class names under imageDir, i.e. its subdirectories sorted
// lexicographically. The class index is the position in the returned slice. The directory is
// created if it does not exist, in which case there are no classes.
func DiscoverClasses(imageDir string) ([]string, error) {
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "cannot create the image directory %q", imageDir)
	}
	return subdirsOf(imageDir)
}

// LabelImage checks that the image at path can be read and returns the label record for it.
// Only the image header is decoded; the box does not depend on the image dimensions.
func LabelImage(path string, classIndex int, box Box) (Record, error) {
	if _, _, err := decodeImageConfig(path); err != nil {
		return Record{}, errors.Wrapf(err, "cannot read image %q", path)
	}
	return Record{ClassIndex: classIndex, Box: box.clamp()}, nil
}

// WriteLabels writes one label file per supported image under cfg.ImageDir to the mirrored
// location under cfg.LabelDir, replacing existing label files. Images that cannot be read are
// logged and recorded in Report.Failures without stopping the run.
func WriteLabels(cfg Config) (Report, error) {
	logger := cfg.logger()

	classes, err := DiscoverClasses(cfg.ImageDir)
	if err != nil {
		return Report{}, err
	}
	if err := os.MkdirAll(cfg.LabelDir, 0755); err != nil {
		return Report{}, errors.Wrapf(err, "cannot create the label directory %q", cfg.LabelDir)
	}

	report := Report{Classes: classes}
	for idx, class := range classes {
		imageDir := filepath.Join(cfg.ImageDir, class)
		labelDir := filepath.Join(cfg.LabelDir, class)
		if err := os.MkdirAll(labelDir, 0755); err != nil {
			return report, errors.Wrapf(err, "cannot create the label directory %q", labelDir)
		}

		images, skipped, err := filesByExtsInDir(imageDir, cfg.extensions())
		if err != nil {
			return report, err
		}
		report.Skipped += skipped
		logger.Debugw("labeling class", "class", class, "index", idx, "images", len(images))

		for _, imagePath := range images {
			labeled, err := writeLabel(imagePath, labelDir, class, idx, cfg.box())
			if err != nil {
				logger.Warnw("skipping image", "path", imagePath, "error", err)
				report.Failures = multierr.Append(report.Failures, err)
				continue
			}
			report.Labeled = append(report.Labeled, labeled)
		}
	}

	logger.Infof("Auto-labeling complete: %d images in %d classes", len(report.Labeled), len(classes))
	return report, nil
}

// writeLabel labels the image at imagePath and writes the record to labelDir, using the image
// base name with a .txt extension.
func writeLabel(imagePath, labelDir, class string, classIndex int, box Box) (LabeledImage, error) {
	record, err := LabelImage(imagePath, classIndex, box)
	if err != nil {
		return LabeledImage{}, err
	}

	_, baseNoExt, _, err := splitPath(imagePath)
	if err != nil {
		return LabeledImage{}, err
	}
	labelPath := filepath.Join(labelDir, baseNoExt+".txt")
	if err := os.WriteFile(labelPath, []byte(record.String()+"\n"), 0644); err != nil {
		return LabeledImage{}, errors.Wrapf(err, "cannot write label file %q", labelPath)
	}

	return LabeledImage{
		ImagePath: imagePath,
		LabelPath: labelPath,
		Class:     class,
		Record:    record,
	}, nil
}
