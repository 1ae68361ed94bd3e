package autolabel_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/protobuf/proto"
	tensorflow "github.com/ryszard/tfutils/proto/tensorflow/core/example"
	"go.viam.com/test"

	"github.com/sensorable/autolabel"
)

// readTFRecords splits a TFRecord file into its record payloads, without checking the CRCs.
func readTFRecords(t *testing.T, path string) [][]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)

	var records [][]byte
	for len(data) > 0 {
		test.That(t, len(data), test.ShouldBeGreaterThanOrEqualTo, 12)
		n := int(binary.LittleEndian.Uint64(data[0:8]))
		data = data[12:]
		test.That(t, len(data), test.ShouldBeGreaterThanOrEqualTo, n+4)
		records = append(records, data[:n])
		data = data[n+4:]
	}
	return records
}

func TestWriteTFRecord(t *testing.T) {
	cfg := newTestConfig(t)
	writeImage(t, filepath.Join(cfg.ImageDir, "cat", "tom.png"), 40, 20)
	writeImage(t, filepath.Join(cfg.ImageDir, "dog", "rex.jpg"), 10, 10)
	cfg.TFRecordPath = filepath.Join(t.TempDir(), "train.record")
	cfg.TFRecordLabelMapPath = filepath.Join(t.TempDir(), "label_map.pbtxt")

	_, err := autolabel.Run(cfg)
	test.That(t, err, test.ShouldBeNil)

	records := readTFRecords(t, cfg.TFRecordPath)
	test.That(t, records, test.ShouldHaveLength, 2)

	var ex tensorflow.Example
	test.That(t, proto.Unmarshal(records[0], &ex), test.ShouldBeNil)
	features := ex.GetFeatures().GetFeature()
	test.That(t, string(features["image/object/class/text"].GetBytesList().Value[0]),
		test.ShouldEqual, "cat")
	test.That(t, features["image/object/class/label"].GetInt64List().Value,
		test.ShouldResemble, []int64{1})
	test.That(t, features["image/width"].GetInt64List().Value, test.ShouldResemble, []int64{40})
	test.That(t, features["image/height"].GetInt64List().Value, test.ShouldResemble, []int64{20})
	test.That(t, string(features["image/format"].GetBytesList().Value[0]), test.ShouldEqual, "png")
	xmin := features["image/object/bbox/xmin"].GetFloatList().Value
	xmax := features["image/object/bbox/xmax"].GetFloatList().Value
	test.That(t, xmin[0], test.ShouldAlmostEqual, 0.2, 1e-6)
	test.That(t, xmax[0], test.ShouldAlmostEqual, 0.8, 1e-6)

	test.That(t, readFile(t, cfg.TFRecordLabelMapPath), test.ShouldEqual,
		"item {\n  id: 1\n  name: \"cat\"\n}\nitem {\n  id: 2\n  name: \"dog\"\n}\n")
}

func TestWriteTFRecordShards(t *testing.T) {
	cfg := newTestConfig(t)
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		writeImage(t, filepath.Join(cfg.ImageDir, "cls", name), 4, 4)
	}
	cfg.TFRecordPath = filepath.Join(t.TempDir(), "out.record")
	cfg.NumShards = 2

	_, err := autolabel.Run(cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readTFRecords(t, cfg.TFRecordPath+"-00000-of-00002"), test.ShouldHaveLength, 2)
	test.That(t, readTFRecords(t, cfg.TFRecordPath+"-00001-of-00002"), test.ShouldHaveLength, 1)

	_, err = os.Stat(cfg.TFRecordPath)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestWriteTFRecordWithoutImages(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.TFRecordPath = filepath.Join(t.TempDir(), "empty.record")

	report, err := autolabel.Run(cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Labeled, test.ShouldBeEmpty)
	test.That(t, readTFRecords(t, cfg.TFRecordPath), test.ShouldBeEmpty)
}

func TestWriteTFRecordMoreShardsThanImages(t *testing.T) {
	cfg := newTestConfig(t)
	writeImage(t, filepath.Join(cfg.ImageDir, "cls", "a.png"), 4, 4)
	writeImage(t, filepath.Join(cfg.ImageDir, "cls", "b.png"), 4, 4)
	cfg.TFRecordPath = filepath.Join(t.TempDir(), "out.record")
	cfg.NumShards = 3

	_, err := autolabel.Run(cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readTFRecords(t, cfg.TFRecordPath+"-00000-of-00003"), test.ShouldHaveLength, 1)
	test.That(t, readTFRecords(t, cfg.TFRecordPath+"-00001-of-00003"), test.ShouldHaveLength, 1)
	test.That(t, readTFRecords(t, cfg.TFRecordPath+"-00002-of-00003"), test.ShouldBeEmpty)
}
