package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Path returns the configuration file for path, which may name the file or
// the directory holding it.
func Path(path string) string {
	if filepath.Base(path) == ConfigurationName {
		return path
	}
	return filepath.Join(path, ConfigurationName)
}

// Load reads the configuration at path on top of the defaults.
func Load(fs afero.Fs, path string) (*Configuration, error) {
	configContents, err := afero.ReadFile(fs, Path(path))
	if err != nil {
		return nil, err
	}

	out := Default()
	if err := yaml.UnmarshalStrict(configContents, out); err != nil {
		return nil, fmt.Errorf("%s: %w", Path(path), err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", Path(path), err)
	}
	return out, nil
}
