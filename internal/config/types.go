package config

import (
	"net"
	"strconv"
	"time"

	"toolgate/internal/clientstore"
)

// Server modes.
const (
	// ModeStateful serves both bindings with sessions.
	ModeStateful = "stateful"
	// ModeStateless serves only POST /mcp, without sessions.
	ModeStateless = "stateless"
)

// Config is the resolved server configuration.
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Auth        AuthConfig         `yaml:"auth"`
	ClientStore clientstore.Config `yaml:"clientStore"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// ServerConfig configures the HTTP listener and the session router.
type ServerConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Mode        string        `yaml:"mode"`
	SSETimeout  time.Duration `yaml:"sseTimeout"`
	MaxSessions int           `yaml:"maxSessions"`
}

// Address is the host:port the server listens on.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Stateless reports whether the server runs without sessions.
func (s ServerConfig) Stateless() bool { return s.Mode == ModeStateless }

// AuthConfig configures the OAuth proxy and bearer protection.
type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
	// ProtectStreamable also requires bearer tokens on /mcp.
	ProtectStreamable bool `yaml:"protectStreamable"`
	// PublicURL is the externally reachable base URL of this server.
	PublicURL string `yaml:"publicURL,omitempty"`

	ClientID         string `yaml:"clientID,omitempty"`
	ClientSecret     string `yaml:"clientSecret,omitempty"`
	IssuerURL        string `yaml:"issuerURL,omitempty"`
	AuthorizationURL string `yaml:"authorizationURL,omitempty"`
	TokenURL         string `yaml:"tokenURL,omitempty"`
	RevocationURL    string `yaml:"revocationURL,omitempty"`
	RegistrationURL  string `yaml:"registrationURL,omitempty"`

	JWTSigningKey string `yaml:"jwtSigningKey,omitempty"`
	JWTAlgorithm  string `yaml:"jwtAlgorithm,omitempty"`
	JWTAudience   string `yaml:"jwtAudience,omitempty"`
}

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
