package config

import (
	"fmt"
	"net/url"
	"strings"

	"toolgate/internal/clientstore"
	"toolgate/pkg/logging"
)

// Configuration sections used in errors.
const (
	SectionServer      = "server"
	SectionAuth        = "auth"
	SectionClientStore = "clientStore"
	SectionLogging     = "logging"
)

var jwtAlgorithms = []string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512"}

// Validate checks cfg and returns every problem found.
func Validate(cfg Config) ConfigurationErrorCollection {
	var errs ConfigurationErrorCollection

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs.AddInvalid(SectionServer, KeyPort, "must be between 1 and 65535", fmt.Sprintf("got %d", cfg.Server.Port))
	}
	if err := validateOneOf(cfg.Server.Mode, []string{ModeStateful, ModeStateless}); err != "" {
		errs.AddInvalid(SectionServer, KeyMode, err, "")
	}
	if cfg.Server.SSETimeout <= 0 {
		errs.AddInvalid(SectionServer, KeySSETimeout, "must be a positive duration", cfg.Server.SSETimeout.String())
	}
	if cfg.Server.MaxSessions < 0 {
		errs.AddInvalid(SectionServer, KeyMaxSessions, "must not be negative", "")
	}

	if cfg.Auth.Enabled {
		validateAuth(&errs, cfg.Auth)
	}

	if err := validateOneOf(cfg.ClientStore.Backend, []string{clientstore.BackendMemory, clientstore.BackendValkey}); err != "" {
		errs.AddInvalid(SectionClientStore, KeyClientStore, err, "")
	}
	if cfg.ClientStore.Backend == clientstore.BackendValkey {
		if cfg.ClientStore.Valkey.Address == "" {
			errs.AddMissing(SectionClientStore, KeyValkeyAddress, "for the valkey client store")
		}
		if cfg.ClientStore.Valkey.DB < 0 {
			errs.AddInvalid(SectionClientStore, KeyValkeyDB, "must not be negative", "")
		}
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs.AddInvalid(SectionLogging, KeyLogLevel, "must be one of: debug, info, warn, error", err.Error())
	}
	if err := validateOneOf(cfg.Logging.Format, []string{logging.FormatText, logging.FormatJSON}); err != "" {
		errs.AddInvalid(SectionLogging, KeyLogFormat, err, "")
	}

	return errs
}

func validateAuth(errs *ConfigurationErrorCollection, auth AuthConfig) {
	required := []struct {
		key   string
		value string
	}{
		{KeyClientID, auth.ClientID},
		{KeyClientSecret, auth.ClientSecret},
		{KeyIssuerURL, auth.IssuerURL},
		{KeyAuthorizationURL, auth.AuthorizationURL},
		{KeyTokenURL, auth.TokenURL},
		{KeyRegistrationURL, auth.RegistrationURL},
		{KeyPublicURL, auth.PublicURL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs.AddMissing(SectionAuth, r.key, "when AUTH_ENABLED is set")
		}
	}

	urls := []struct {
		key   string
		value string
	}{
		{KeyIssuerURL, auth.IssuerURL},
		{KeyAuthorizationURL, auth.AuthorizationURL},
		{KeyTokenURL, auth.TokenURL},
		{KeyRevocationURL, auth.RevocationURL},
		{KeyRegistrationURL, auth.RegistrationURL},
		{KeyPublicURL, auth.PublicURL},
	}
	for _, u := range urls {
		if u.value == "" {
			continue
		}
		if err := validateURL(u.value); err != "" {
			errs.AddInvalid(SectionAuth, u.key, err, u.value)
		}
	}

	if auth.JWTSigningKey != "" {
		if err := validateOneOf(auth.JWTAlgorithm, jwtAlgorithms); err != "" {
			errs.AddInvalid(SectionAuth, KeyJWTAlgorithm, err, "")
		}
	}
}

func validateURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("is not a valid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "must be an http or https URL"
	}
	if u.Host == "" {
		return "must include a host"
	}
	return ""
}

func validateOneOf(value string, allowed []string) string {
	for _, a := range allowed {
		if value == a {
			return ""
		}
	}
	return fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))
}
