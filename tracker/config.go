package tracker

// Config holds the paths and devices used by the tracking modes.
type Config struct {
	ModelPath   string `mapstructure:"model_path"`   // The ONNX detection model.
	NamesPath   string `mapstructure:"names_path"`   // Dataset manifest with the class names.
	LibraryPath string `mapstructure:"library_path"` // onnxruntime shared library; empty uses the default.
	VideoPath   string `mapstructure:"video_path"`   // Input for ModeVideo.
	OutputVideo string `mapstructure:"output_video"` // Annotated output for ModeVideo; empty disables it.
	CameraIndex int    `mapstructure:"camera_index"` // Device for ModeCamera.

	Screen ScreenConfig `mapstructure:"screen"`

	InputSize  int     `mapstructure:"input_size"` // Square model input size in pixels.
	Confidence float64 `mapstructure:"confidence"` // Minimum detection score.
	IOU        float64 `mapstructure:"iou"`        // Overlap threshold for non-maximum suppression.

	Display bool `mapstructure:"display"` // Show annotated frames in a window.
}

// ScreenConfig is the screen region captured by ModeScreen.
type ScreenConfig struct {
	Display string  `mapstructure:"display"` // X11 display, e.g. ":0.0"; ignored on other platforms.
	X       int     `mapstructure:"x"`
	Y       int     `mapstructure:"y"`
	Width   int     `mapstructure:"width"`
	Height  int     `mapstructure:"height"`
	FPS     float64 `mapstructure:"fps"`
}

// DefaultConfig returns the configuration the tracker uses when nothing else is specified.
func DefaultConfig() Config {
	return Config{
		ModelPath:   "runs/detect/custom/weights/best.onnx",
		NamesPath:   "dataset/dataset.yaml",
		VideoPath:   "shiba1.mp4",
		OutputVideo: "output_annotated.mp4",
		CameraIndex: 0,
		Screen: ScreenConfig{
			Display: ":0.0",
			Width:   1920,
			Height:  1080,
			FPS:     15,
		},
		InputSize:  640,
		Confidence: 0.25,
		IOU:        0.45,
		Display:    true,
	}
}
