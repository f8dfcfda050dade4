package config

import (
	"time"

	"toolgate/internal/clientstore"
	"toolgate/internal/session"
	"toolgate/internal/transport"
	"toolgate/pkg/logging"
)

const (
	// DefaultPort is used when no port is configured.
	DefaultPort = 8000
	// DefaultAuthPort is used instead of DefaultPort when auth is enabled.
	DefaultAuthPort = 5050

	DefaultHost         = "0.0.0.0"
	DefaultJWTAlgorithm = "HS256"
	DefaultEnvFile      = ".env"
)

// GetDefaultConfig returns the configuration used when nothing is set.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:        DefaultHost,
			Port:        DefaultPort,
			Mode:        ModeStateful,
			SSETimeout:  transport.DefaultSSEWriteTimeout,
			MaxSessions: session.DefaultMaxSessions,
		},
		Auth: AuthConfig{
			JWTAlgorithm: DefaultJWTAlgorithm,
		},
		ClientStore: clientstore.Config{
			Backend: clientstore.BackendMemory,
			Valkey: clientstore.ValkeyConfig{
				Address:     clientstore.DefaultValkeyAddress,
				DialTimeout: 5 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}
