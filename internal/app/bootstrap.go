package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"toolgate/pkg/logging"
)

// Application bootstraps and runs toolgate.
//
// Example usage:
//
//	settings, err := config.Load(config.LoadOptions{EnvFile: ".env"})
//	if err != nil {
//	    return err
//	}
//	application, err := app.NewApplication(app.NewConfig(settings, version))
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication initializes logging from the configuration and wires all
// services. The settings are expected to be validated already.
func NewApplication(cfg *Config) (*Application, error) {
	level, err := logging.ParseLevel(cfg.Settings.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	var logOutput io.Writer = os.Stdout
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}
	logging.Init(level, cfg.Settings.Logging.Format, logOutput)

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services exposes the wired components.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (a *Application) Run(ctx context.Context) error {
	return run(ctx, a.services)
}
