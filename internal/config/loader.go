package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"toolgate/internal/clientstore"
	"toolgate/pkg/logging"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys, named after their environment variables.
const (
	KeyPort              = "PORT"
	KeyHost              = "HOST"
	KeyMode              = "MODE"
	KeySSETimeout        = "SSE_TIMEOUT"
	KeyMaxSessions       = "MAX_SESSIONS"
	KeyAuthEnabled       = "AUTH_ENABLED"
	KeyProtectStreamable = "PROTECT_STREAMABLE"
	KeyPublicURL         = "THIS_HOSTNAME"
	KeyClientID          = "OAUTH_CLIENT_ID"
	KeyClientSecret      = "OAUTH_CLIENT_SECRET"
	KeyIssuerURL         = "OAUTH_ISSUER_URL"
	KeyAuthorizationURL  = "OAUTH_AUTHORIZATION_URL"
	KeyTokenURL          = "OAUTH_TOKEN_URL"
	KeyRevocationURL     = "OAUTH_REVOCATION_URL"
	KeyRegistrationURL   = "OAUTH_REGISTRATION_URL"
	KeyJWTSigningKey     = "OAUTH_JWT_SIGNING_KEY"
	KeyJWTAlgorithm      = "OAUTH_JWT_ALGORITHM"
	KeyJWTAudience       = "OAUTH_JWT_AUDIENCE"
	KeyClientStore       = "CLIENT_STORE"
	KeyValkeyAddress     = "VALKEY_ADDRESS"
	KeyValkeyPassword    = "VALKEY_PASSWORD"
	KeyValkeyDB          = "VALKEY_DB"
	KeyValkeyKeyPrefix   = "VALKEY_KEY_PREFIX"
	KeyValkeyTLS         = "VALKEY_TLS"
	KeyLogLevel          = "LOG_LEVEL"
	KeyLogFormat         = "LOG_FORMAT"
)

// Keys lists every configuration key.
var Keys = []string{
	KeyPort, KeyHost, KeyMode, KeySSETimeout, KeyMaxSessions,
	KeyAuthEnabled, KeyProtectStreamable, KeyPublicURL,
	KeyClientID, KeyClientSecret, KeyIssuerURL, KeyAuthorizationURL, KeyTokenURL,
	KeyRevocationURL, KeyRegistrationURL,
	KeyJWTSigningKey, KeyJWTAlgorithm, KeyJWTAudience,
	KeyClientStore, KeyValkeyAddress, KeyValkeyPassword, KeyValkeyDB, KeyValkeyKeyPrefix, KeyValkeyTLS,
	KeyLogLevel, KeyLogFormat,
}

// FlagName returns the command line flag bound to key.
func FlagName(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}

// viperKey is the lower-case form viper stores keys under.
func viperKey(key string) string {
	return strings.ToLower(key)
}

// LoadOptions controls where Load looks for values.
type LoadOptions struct {
	// EnvFile is a dotenv file. A missing file is ignored unless
	// EnvFileRequired is set.
	EnvFile         string
	EnvFileRequired bool

	// Flags are bound by FlagName. Only flags that were set on the command
	// line override other sources.
	Flags *pflag.FlagSet
}

// Load resolves and validates the configuration.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	def := GetDefaultConfig()

	v.SetDefault(viperKey(KeyHost), def.Server.Host)
	v.SetDefault(viperKey(KeyMode), def.Server.Mode)
	v.SetDefault(viperKey(KeySSETimeout), def.Server.SSETimeout)
	v.SetDefault(viperKey(KeyMaxSessions), def.Server.MaxSessions)
	v.SetDefault(viperKey(KeyJWTAlgorithm), def.Auth.JWTAlgorithm)
	v.SetDefault(viperKey(KeyValkeyAddress), def.ClientStore.Valkey.Address)
	v.SetDefault(viperKey(KeyLogLevel), def.Logging.Level)
	v.SetDefault(viperKey(KeyLogFormat), def.Logging.Format)

	if err := readEnvFile(v, opts); err != nil {
		return Config{}, err
	}

	for _, key := range Keys {
		if err := v.BindEnv(viperKey(key), key); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
		if opts.Flags == nil {
			continue
		}
		if flag := opts.Flags.Lookup(FlagName(key)); flag != nil {
			if err := v.BindPFlag(viperKey(key), flag); err != nil {
				return Config{}, fmt.Errorf("bind --%s: %w", flag.Name, err)
			}
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Host:        strings.TrimSpace(v.GetString(viperKey(KeyHost))),
			Mode:        strings.ToLower(strings.TrimSpace(v.GetString(viperKey(KeyMode)))),
			SSETimeout:  v.GetDuration(viperKey(KeySSETimeout)),
			MaxSessions: v.GetInt(viperKey(KeyMaxSessions)),
		},
		Auth: AuthConfig{
			Enabled:           v.GetBool(viperKey(KeyAuthEnabled)),
			ProtectStreamable: v.GetBool(viperKey(KeyProtectStreamable)),
			PublicURL:         strings.TrimSpace(v.GetString(viperKey(KeyPublicURL))),
			ClientID:          strings.TrimSpace(v.GetString(viperKey(KeyClientID))),
			ClientSecret:      v.GetString(viperKey(KeyClientSecret)),
			IssuerURL:         strings.TrimSpace(v.GetString(viperKey(KeyIssuerURL))),
			AuthorizationURL:  strings.TrimSpace(v.GetString(viperKey(KeyAuthorizationURL))),
			TokenURL:          strings.TrimSpace(v.GetString(viperKey(KeyTokenURL))),
			RevocationURL:     strings.TrimSpace(v.GetString(viperKey(KeyRevocationURL))),
			RegistrationURL:   strings.TrimSpace(v.GetString(viperKey(KeyRegistrationURL))),
			JWTSigningKey:     v.GetString(viperKey(KeyJWTSigningKey)),
			JWTAlgorithm:      strings.ToUpper(strings.TrimSpace(v.GetString(viperKey(KeyJWTAlgorithm)))),
			JWTAudience:       strings.TrimSpace(v.GetString(viperKey(KeyJWTAudience))),
		},
		ClientStore: clientstore.Config{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString(viperKey(KeyClientStore)))),
			Valkey: clientstore.ValkeyConfig{
				Address:     strings.TrimSpace(v.GetString(viperKey(KeyValkeyAddress))),
				Password:    v.GetString(viperKey(KeyValkeyPassword)),
				DB:          v.GetInt(viperKey(KeyValkeyDB)),
				KeyPrefix:   v.GetString(viperKey(KeyValkeyKeyPrefix)),
				TLSEnabled:  v.GetBool(viperKey(KeyValkeyTLS)),
				DialTimeout: def.ClientStore.Valkey.DialTimeout,
			},
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString(viperKey(KeyLogLevel)))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString(viperKey(KeyLogFormat)))),
		},
	}

	// The port default depends on the auth mode.
	switch {
	case v.IsSet(viperKey(KeyPort)):
		cfg.Server.Port = v.GetInt(viperKey(KeyPort))
	case cfg.Auth.Enabled:
		cfg.Server.Port = DefaultAuthPort
	default:
		cfg.Server.Port = DefaultPort
	}

	if cfg.ClientStore.Backend == "" {
		cfg.ClientStore.Backend = clientstore.BackendMemory
		if cfg.Auth.Enabled {
			cfg.ClientStore.Backend = clientstore.BackendValkey
		}
	}

	if errs := Validate(cfg); errs.HasErrors() {
		return cfg, errs
	}
	return cfg, nil
}

func readEnvFile(v *viper.Viper, opts LoadOptions) error {
	if opts.EnvFile == "" {
		return nil
	}

	info, err := os.Stat(opts.EnvFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !opts.EnvFileRequired {
			logging.Debug("ConfigLoader", "No env file found at %s, using environment only", opts.EnvFile)
			return nil
		}
		return fmt.Errorf("env file %s: %w", opts.EnvFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("env file %s is a directory", opts.EnvFile)
	}

	v.SetConfigFile(opts.EnvFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", opts.EnvFile, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", opts.EnvFile)
	return nil
}
