package autolabel

// Dataset manifest (dataset.yaml) functionality.

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Manifest tells a training pipeline where the dataset lives and which classes it contains.
type Manifest struct {
	Names []string `yaml:"names"`
	Path  string   `yaml:"path"`
	Train string   `yaml:"train"` // Relative to Path.
	Val   string   `yaml:"val"`   // Relative to Path; currently the same as Train.
}

// NewManifest returns the manifest for classes, with the paths taken from cfg.
func NewManifest(classes []string, cfg Config) Manifest {
	names := make([]string, len(classes))
	copy(names, classes)
	return Manifest{
		Names: names,
		Path:  cfg.DatasetRoot,
		Train: cfg.TrainDir,
		Val:   cfg.ValDir,
	}
}

// Marshal encodes the manifest as YAML.
func (m Manifest) Marshal() ([]byte, error) {
	if m.Names == nil {
		m.Names = []string{} // Encode as [] rather than null.
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteManifest writes the manifest for classes to cfg.ManifestPath, replacing any existing file.
func WriteManifest(classes []string, cfg Config) error {
	enc, err := NewManifest(classes, cfg).Marshal()
	if err != nil {
		return errors.Wrap(err, "cannot encode the dataset manifest")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.ManifestPath), 0755); err != nil {
		return errors.Wrapf(err, "cannot create the manifest directory for %q", cfg.ManifestPath)
	}
	if err := ioutil.WriteFile(cfg.ManifestPath, enc, 0644); err != nil {
		return errors.Wrapf(err, "cannot write file %q", cfg.ManifestPath)
	}

	cfg.logger().Infof("%s updated with classes: %v", cfg.ManifestPath, classes)
	return nil
}

// ReadManifest reads and parses the manifest at path.
func ReadManifest(path string) (Manifest, error) {
	enc, err := ioutil.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}

	var m Manifest
	if err := yaml.Unmarshal(enc, &m); err != nil {
		return Manifest{}, errors.Wrapf(err, "failed to parse manifest %q", path)
	}
	return m, nil
}
