package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/sensorable/autolabel/tracker"
)

// envPrefix prefixes the environment variables that override configuration keys, e.g.
// TRACK_MODEL_PATH or TRACK_SCREEN_WIDTH.
const envPrefix = "TRACK"

// loadConfig reads the tracker configuration. Values come from the defaults, then the YAML file at
// path if it is set, then the environment.
func loadConfig(path string) (tracker.Config, error) {
	v := viper.New()
	setDefaults(v, tracker.DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return tracker.Config{}, errors.Wrapf(err, "failed to read the config file %q", path)
		}
	}

	var cfg tracker.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return tracker.Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// setDefaults registers every key so that environment variables can override all of them.
func setDefaults(v *viper.Viper, cfg tracker.Config) {
	v.SetDefault("model_path", cfg.ModelPath)
	v.SetDefault("names_path", cfg.NamesPath)
	v.SetDefault("library_path", cfg.LibraryPath)
	v.SetDefault("video_path", cfg.VideoPath)
	v.SetDefault("output_video", cfg.OutputVideo)
	v.SetDefault("camera_index", cfg.CameraIndex)
	v.SetDefault("screen.display", cfg.Screen.Display)
	v.SetDefault("screen.x", cfg.Screen.X)
	v.SetDefault("screen.y", cfg.Screen.Y)
	v.SetDefault("screen.width", cfg.Screen.Width)
	v.SetDefault("screen.height", cfg.Screen.Height)
	v.SetDefault("screen.fps", cfg.Screen.FPS)
	v.SetDefault("input_size", cfg.InputSize)
	v.SetDefault("confidence", cfg.Confidence)
	v.SetDefault("iou", cfg.IOU)
	v.SetDefault("display", cfg.Display)
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(c *cli.Context, cfg *tracker.Config) {
	if c.IsSet(flagModel) {
		cfg.ModelPath = c.String(flagModel)
	}
	if c.IsSet(flagNames) {
		cfg.NamesPath = c.String(flagNames)
	}
	if c.IsSet(flagLibrary) {
		cfg.LibraryPath = c.String(flagLibrary)
	}
	if c.IsSet(flagVideo) {
		cfg.VideoPath = c.String(flagVideo)
	}
	if c.IsSet(flagOutput) {
		cfg.OutputVideo = c.String(flagOutput)
	}
	if c.IsSet(flagCamera) {
		cfg.CameraIndex = c.Int(flagCamera)
	}
	if c.IsSet(flagConfidence) {
		cfg.Confidence = c.Float64(flagConfidence)
	}
	if c.IsSet(flagNoDisplay) {
		cfg.Display = !c.Bool(flagNoDisplay)
	}
}
