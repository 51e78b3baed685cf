package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	ConfigPath string // run configuration file or directory of .hcl files
	Flavor     string // registered flavor name
	OutputDir  string // overrides output_dir from the run configuration

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.Flavor == "" {
		return nil, errors.New("Flavor is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
