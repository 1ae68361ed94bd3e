// Package autolabel stamps placeholder YOLO labels onto a directory tree of per-class images and
// writes the dataset manifest that describes the result.
//
// The expected layout is:
//
//	<root>/images/<class>/<file>.{jpg,jpeg,png}  (input)
//	<root>/labels/<class>/<file>.txt             (output, one label line per image)
//	<root>/dataset.yaml                          (output, the dataset manifest)
//
// Every run regenerates all labels and the manifest from the directory state alone.
package autolabel

// Run labels all images under cfg.ImageDir, then writes the manifest and, if cfg.TFRecordPath is
// set, the TFRecord export.
func Run(cfg Config) (Report, error) {
	report, err := WriteLabels(cfg)
	if err != nil {
		return report, err
	}
	if err := WriteManifest(report.Classes, cfg); err != nil {
		return report, err
	}
	if cfg.TFRecordPath != "" {
		if err := WriteTFRecord(cfg, report); err != nil {
			return report, err
		}
	}
	return report, nil
}
