package app

import (
	"io"

	"toolgate/internal/config"
)

// Config holds what the application needs beyond the resolved settings.
type Config struct {
	Settings config.Config
	Version  string

	// LogOutput receives log lines; nil means standard output.
	LogOutput io.Writer
}

// NewConfig creates an application configuration.
func NewConfig(settings config.Config, version string) *Config {
	return &Config{Settings: settings, Version: version}
}
