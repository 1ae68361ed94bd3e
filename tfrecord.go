package autolabel

// TFRecord object detection export.

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	tensorflow "github.com/ryszard/tfutils/proto/tensorflow/core/example"
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// toTFFeatures converts a labeled image to the feature map of the TensorFlow object detection
// API. Class IDs are the class index plus one, as label maps reserve ID zero.
func toTFFeatures(img LabeledImage) (TFFeatureMap, error) {
	config, format, err := decodeImageConfig(img.ImagePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode the image metadata")
	}
	data, err := readFile(img.ImagePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the image")
	}

	c := img.Record.Box.Corners()
	f := make(TFFeatureMap, 12)
	f["image/height"] = config.Height
	f["image/width"] = config.Width
	f["image/filename"] = img.ImagePath
	f["image/source_id"] = img.ImagePath
	f["image/encoded"] = data
	f["image/format"] = format
	f["image/object/bbox/xmin"] = []float32{float32(c[0])}
	f["image/object/bbox/ymin"] = []float32{float32(c[1])}
	f["image/object/bbox/xmax"] = []float32{float32(c[2])}
	f["image/object/bbox/ymax"] = []float32{float32(c[3])}
	f["image/object/class/text"] = []string{img.Class}
	f["image/object/class/label"] = []int64{int64(img.Record.ClassIndex + 1)}

	return f, nil
}

// shardPath returns the path of shard idx out of numShards for the record file at path.
func shardPath(path string, idx, numShards int) string {
	if numShards <= 1 {
		return path
	}
	return fmt.Sprintf("%s-%05d-of-%05d", path, idx, numShards)
}

// WriteTFRecord writes one tensorflow.Example per labeled image in report to cfg.TFRecordPath,
// split over cfg.NumShards files, and a label map for report.Classes to
// cfg.TFRecordLabelMapPath. Images that fail to convert are logged and left out.
func WriteTFRecord(cfg Config, report Report) (err error) {
	// example.New panics on feature values it cannot convert.
	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	logger := cfg.logger()
	numShards := cfg.NumShards
	if numShards <= 0 {
		numShards = 1
	}

	// Every shard file is created, even those that receive no examples.
	shards := make([]*bufio.Writer, numShards)
	for i := range shards {
		path := shardPath(cfg.TFRecordPath, i, numShards)
		f, cerr := os.Create(path)
		if cerr != nil {
			return errors.Wrapf(cerr, "failed to create shard at %q", path)
		}
		defer closeWithErrCheck(f, &err)
		w := bufio.NewWriter(f)
		defer flushWithErrCheck(w, &err)
		shards[i] = w
	}

	data := report.Labeled
	shardSize := int(math.Ceil(float64(len(data)) / float64(numShards)))
	if shardSize < 1 {
		shardSize = 1
	}

	written := 0
	for i, img := range data {
		features, err := toTFFeatures(img)
		if err != nil {
			logger.Warnw("failed to convert image", "path", img.ImagePath, "error", err)
			continue
		}
		if err := writeTFRecordExample(shards[i/shardSize], example.New(features)); err != nil {
			return errors.Wrapf(err, "failed to write example for %q", img.ImagePath)
		}
		written++
	}
	logger.Infof("Wrote %d TFRecord examples to %s", written, cfg.TFRecordPath)

	if cfg.TFRecordLabelMapPath == "" {
		return nil
	}
	return saveTFRecordLabelMap(cfg.TFRecordLabelMapPath, report.Classes)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// flushWithErrCheck flushes w. If that fails and (*e == nil), e is set to the error.
func flushWithErrCheck(w *bufio.Writer, e *error) {
	if err := w.Flush(); err != nil && *e == nil {
		*e = err
	}
}

// saveTFRecordLabelMap writes the classes in prototxt label map format to path, numbering them
// from one in class index order.
func saveTFRecordLabelMap(path string, classes []string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create the label map file %q", path)
	}
	defer closeWithErrCheck(file, &err)

	w := bufio.NewWriter(file)
	for i, name := range classes {
		fmt.Fprintf(w, "item {\n  id: %d\n  name: %q\n}\n", i+1, name)
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "failed to write the label map %q", path)
	}

	return nil
}
