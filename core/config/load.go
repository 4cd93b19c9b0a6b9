package config

import (
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load reads and validates a configuration file. A missing file is an
// error; callers that treat configuration as optional check existence
// first with Exists.
func Load(fs afero.Fs, path string) (*Configuration, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	configuration := &Configuration{}
	if err := yaml.UnmarshalStrict(data, configuration); err != nil {
		return nil, err
	}
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return configuration, nil
}

// Exists reports whether a configuration file is present.
func Exists(fs afero.Fs, path string) bool {
	ok, err := afero.Exists(fs, path)
	return err == nil && ok
}

// Default returns the configuration used when no file is present.
func Default() *Configuration {
	return &Configuration{}
}
