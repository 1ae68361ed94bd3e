package autolabel

import (
	"path/filepath"

	"github.com/edaniels/golog"
	"go.uber.org/zap"
)

// Default values for a dataset laid out as <root>/images/<class>/<file>.
const (
	DefaultImageDirName = "images"
	DefaultLabelDirName = "labels"
	DefaultManifestName = "dataset.yaml"
)

// DefaultExtensions are the image file extensions that get labeled.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png"}

// PlaceholderBox is the constant box stamped onto every image: centered, covering 60% of the
// image width and height.
var PlaceholderBox = Box{XCenter: 0.5, YCenter: 0.5, Width: 0.6, Height: 0.6}

// Config describes where a dataset lives and how it gets labeled.
type Config struct {
	DatasetRoot  string   // Written to the manifest as "path".
	ImageDir     string   // The image input root, one subdirectory per class.
	LabelDir     string   // The label output root, mirroring ImageDir.
	ManifestPath string   // The dataset manifest output file.
	TrainDir     string   // The train split, relative to DatasetRoot.
	ValDir       string   // The validation split, relative to DatasetRoot.
	Extensions   []string // Supported image extensions, including the dot.
	Box          Box      // The box written for every image.

	TFRecordPath         string // Optional TFRecord output; empty disables the export.
	TFRecordLabelMapPath string // The label map written alongside the TFRecord output.
	NumShards            int    // The number of TFRecord shard files.

	Logger golog.Logger
}

// NewConfig returns the default configuration for the dataset at root.
func NewConfig(root string) Config {
	return Config{
		DatasetRoot:  root,
		ImageDir:     filepath.Join(root, DefaultImageDirName),
		LabelDir:     filepath.Join(root, DefaultLabelDirName),
		ManifestPath: filepath.Join(root, DefaultManifestName),
		TrainDir:     DefaultImageDirName,
		ValDir:       DefaultImageDirName,
		Extensions:   DefaultExtensions,
		Box:          PlaceholderBox,
		NumShards:    1,
	}
}

// logger returns the configured logger or a no-op logger.
func (c Config) logger() golog.Logger {
	if c.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return c.Logger
}

// box returns the configured box or PlaceholderBox if it is unset.
func (c Config) box() Box {
	if c.Box == (Box{}) {
		return PlaceholderBox
	}
	return c.Box
}

// extensions returns the configured extensions or DefaultExtensions.
func (c Config) extensions() []string {
	if len(c.Extensions) == 0 {
		return DefaultExtensions
	}
	return c.Extensions
}
