package config

import (
	"errors"
	iofs "io/fs"
	"log"

	"github.com/spf13/afero"
)

// Initialize writes the default configuration into dir unless one already
// exists. It returns the path of the configuration file.
func Initialize(fs afero.Fs, dir string, logger *log.Logger) (string, error) {
	path := Path(dir)

	if err := fs.MkdirAll(dir, 0700); err != nil {
		return "", err
	}

	switch _, err := fs.Stat(path); {
	case err == nil:
		logger.Printf("%s already exists, leaving it alone", path)
		return path, nil
	case !errors.Is(err, iofs.ErrNotExist):
		return "", err
	}

	logger.Printf("writing %s", path)
	if err := afero.WriteFile(fs, path, defaultConfigData, 0600); err != nil {
		return "", err
	}
	return path, nil
}
