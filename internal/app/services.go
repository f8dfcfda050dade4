package app

import (
	"context"
	"errors"
	"fmt"

	"toolgate/internal/authrouter"
	"toolgate/internal/clientstore"
	"toolgate/internal/config"
	"toolgate/internal/metrics"
	"toolgate/internal/oauthproxy"
	"toolgate/internal/router"
	"toolgate/internal/server"
	"toolgate/internal/session"
	"toolgate/internal/tools"
	"toolgate/internal/transport"
	"toolgate/pkg/logging"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// resourceName is advertised in the protected resource metadata.
const resourceName = "toolgate MCP server"

// Services holds every long-lived component of a running server.
type Services struct {
	Metrics  *metrics.Metrics
	Sessions *session.Store
	Engine   *mcpserver.MCPServer
	Router   *router.Router

	// Set only when auth is enabled.
	ClientStore clientstore.Store
	Provider    oauthproxy.Provider
	Auth        *authrouter.Router

	Server *server.HTTPServer
}

// InitializeServices wires all components described by cfg.
func InitializeServices(cfg *Config) (*Services, error) {
	settings := cfg.Settings
	s := &Services{Metrics: metrics.New()}

	s.Sessions = session.NewStore(
		session.WithMaxSessions(settings.Server.MaxSessions),
		session.WithObserver(s.Metrics),
	)
	s.Engine = tools.NewServer(cfg.Version)
	s.Router = router.New(s.Sessions, s.Engine, router.Options{
		Stateless: settings.Server.Stateless(),
		SSE: transport.SSEOptions{
			MessagePath:  transport.DefaultMessagePath,
			WriteTimeout: settings.Server.SSETimeout,
		},
		Observer: s.Metrics,
	})

	serverOpts := server.Options{
		Address:           settings.Server.Address(),
		Router:            s.Router,
		ProtectStreamable: settings.Auth.ProtectStreamable,
		Metrics:           s.Metrics,
		OnShutdown:        s.Sessions.CloseAll,
	}

	if settings.Auth.Enabled {
		if err := s.initializeAuth(settings); err != nil {
			_ = s.Close()
			return nil, err
		}
		serverOpts.Auth = s.Auth
		serverOpts.Verifier = s.Provider
		serverOpts.HealthCheck = s.ClientStore.Ping
	}

	srv, err := server.New(serverOpts)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}
	s.Server = srv

	logging.Info("Bootstrap", "Services initialized (mode=%s, auth=%t)", settings.Server.Mode, settings.Auth.Enabled)
	return s, nil
}

func (s *Services) initializeAuth(settings config.Config) error {
	verifier, err := newVerifier(settings.Auth)
	if err != nil {
		return err
	}

	proxy, err := oauthproxy.NewProxy(oauthproxy.Config{
		Endpoints: oauthproxy.Endpoints{
			AuthorizationURL: settings.Auth.AuthorizationURL,
			TokenURL:         settings.Auth.TokenURL,
			RevocationURL:    settings.Auth.RevocationURL,
			RegistrationURL:  settings.Auth.RegistrationURL,
		},
		Verifier: verifier,
		Observer: s.Metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create OAuth proxy: %w", err)
	}

	store, err := clientstore.New(settings.ClientStore)
	if err != nil {
		return fmt.Errorf("failed to create client store: %w", err)
	}
	s.ClientStore = store
	s.Provider = oauthproxy.NewPersistingProvider(proxy, store)

	s.Auth, err = authrouter.New(s.Provider, authrouter.Config{
		IssuerURL:       settings.Auth.IssuerURL,
		BaseURL:         settings.Auth.PublicURL,
		ScopesSupported: oauthproxy.DefaultStaticScopes,
		ResourceName:    resourceName,
	})
	if err != nil {
		return fmt.Errorf("failed to create authorization router: %w", err)
	}

	logging.Info("Bootstrap", "OAuth proxy enabled (client store: %s)", settings.ClientStore.Backend)
	return nil
}

func newVerifier(auth config.AuthConfig) (oauthproxy.TokenVerifier, error) {
	if auth.JWTSigningKey == "" {
		logging.Warn("Bootstrap", "No JWT signing key configured; bearer tokens are accepted without validation")
		return oauthproxy.StaticVerifier{ClientID: auth.ClientID}, nil
	}

	v, err := oauthproxy.NewJWTVerifier(oauthproxy.JWTVerifierConfig{
		Algorithm: auth.JWTAlgorithm,
		Key:       auth.JWTSigningKey,
		Issuer:    auth.IssuerURL,
		Audience:  auth.JWTAudience,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT verifier: %w", err)
	}
	return v, nil
}

// Ping checks the dependencies that must be reachable before serving.
func (s *Services) Ping(ctx context.Context) error {
	if s.ClientStore == nil {
		return nil
	}
	if err := s.ClientStore.Ping(ctx); err != nil {
		return fmt.Errorf("client store unreachable: %w", err)
	}
	return nil
}

// Close closes every session and releases the client store.
func (s *Services) Close() error {
	var errs []error
	if s.Sessions != nil {
		s.Sessions.CloseAll()
	}
	if s.ClientStore != nil {
		if err := s.ClientStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close client store: %w", err))
		}
	}
	return errors.Join(errs...)
}
