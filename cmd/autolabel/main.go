// Stamps a placeholder YOLO label onto every image of a per-class image tree and writes the dataset
// manifest, optionally exporting the result as TFRecord files.
package main

import (
	"log"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/sensorable/autolabel"
)

const (
	flagDataset          = "dataset"
	flagTFRecord         = "tfrecord"
	flagTFRecordLabelMap = "tfrecord-label-map"
	flagNumShards        = "num-shards"
	flagDebug            = "debug"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "autolabel",
		Usage: "label every image of <dataset>/images/<class>/ with a placeholder box",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagDataset,
				Value: "dataset",
				Usage: "the dataset root `DIR` containing images/<class>/",
			},
			&cli.StringFlag{
				Name:  flagTFRecord,
				Usage: "also export the labeled images to the TFRecord `FILE`",
			},
			&cli.StringFlag{
				Name:  flagTFRecordLabelMap,
				Usage: "the TFRecord label map `FILE` (defaults to <tfrecord>.pbtxt)",
			},
			&cli.IntFlag{
				Name:  flagNumShards,
				Value: 1,
				Usage: "the number of TFRecord shard files",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	var logger golog.Logger
	if c.Bool(flagDebug) {
		logger = golog.NewDebugLogger("autolabel")
	} else {
		logger = golog.NewDevelopmentLogger("autolabel")
	}

	cfg := autolabel.NewConfig(c.String(flagDataset))
	cfg.Logger = logger
	cfg.TFRecordPath = c.String(flagTFRecord)
	cfg.TFRecordLabelMapPath = c.String(flagTFRecordLabelMap)
	if cfg.TFRecordPath != "" && cfg.TFRecordLabelMapPath == "" {
		cfg.TFRecordLabelMapPath = cfg.TFRecordPath + ".pbtxt"
	}
	cfg.NumShards = c.Int(flagNumShards)
	if cfg.NumShards < 1 {
		return errors.Errorf("invalid number of shards %d", cfg.NumShards)
	}

	report, err := autolabel.Run(cfg)
	if err != nil {
		return err
	}
	for _, failure := range multierr.Errors(report.Failures) {
		logger.Debugw("failure", "error", failure)
	}
	logger.Infow("dataset written",
		"classes", len(report.Classes),
		"labeled", len(report.Labeled),
		"skipped", report.Skipped,
		"failed", len(multierr.Errors(report.Failures)),
		"manifest", cfg.ManifestPath)
	return nil
}
