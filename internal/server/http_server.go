package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"toolgate/internal/authrouter"
	"toolgate/internal/metrics"
	"toolgate/internal/router"
	"toolgate/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout is the default timeout for writing responses.
	// Event streams extend their own deadline.
	DefaultWriteTimeout = 120 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second

	// healthCheckTimeout bounds the dependency check of /health.
	healthCheckTimeout = 2 * time.Second

	StreamablePath = "/mcp"
	SSEPath        = "/sse"
	HealthPath     = "/health"
	MetricsPath    = "/metrics"
)

// Options configures an HTTPServer.
type Options struct {
	Address string
	Router  *router.Router

	// Auth, when set, serves the OAuth endpoints and protects the MCP
	// endpoints with bearer tokens checked by Verifier.
	Auth              *authrouter.Router
	Verifier          authrouter.AccessTokenVerifier
	RequiredScopes    []string
	ProtectStreamable bool

	// Metrics, when set, instruments every endpoint and serves /metrics.
	Metrics *metrics.Metrics

	// HealthCheck reports whether dependencies are usable. /health answers
	// 503 while it fails.
	HealthCheck func(ctx context.Context) error

	// OnShutdown runs when Shutdown starts, typically closing every session
	// so that event streams end.
	OnShutdown func()
}

// HTTPServer serves the MCP bindings and, optionally, the OAuth endpoints.
type HTTPServer struct {
	opts       Options
	httpServer *http.Server
}

// New validates opts and builds the server. It does not listen yet.
func New(opts Options) (*HTTPServer, error) {
	if opts.Router == nil {
		return nil, errors.New("session router is required")
	}
	if opts.Auth != nil && opts.Verifier == nil {
		return nil, errors.New("a token verifier is required when auth is enabled")
	}

	s := &HTTPServer{opts: opts}
	s.httpServer = &http.Server{
		Addr:              opts.Address,
		Handler:           s.CreateMux(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
	if opts.OnShutdown != nil {
		s.httpServer.RegisterOnShutdown(opts.OnShutdown)
	}
	return s, nil
}

// CreateMux creates the mux routing to every endpoint.
func (s *HTTPServer) CreateMux() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(HealthPath, s.instrument("health", http.HandlerFunc(s.serveHealth)))
	if s.opts.Metrics != nil {
		mux.Handle(MetricsPath, s.opts.Metrics.Handler())
	}

	if s.opts.Auth != nil {
		s.opts.Auth.Register(mux)
	}

	s.setupMCPRoutes(mux)
	return mux
}

func (s *HTTPServer) setupMCPRoutes(mux *http.ServeMux) {
	rt := s.opts.Router

	streamable := rt.Streamable()
	if s.opts.ProtectStreamable {
		streamable = s.protect(streamable)
	}
	mux.Handle(StreamablePath, s.instrument("mcp", router.Recover(streamable)))

	if rt.Stateless() {
		logging.Info("Server", "Stateless mode: serving %s only", StreamablePath)
		return
	}

	mux.Handle(SSEPath, s.instrument("sse", router.Recover(s.protect(rt.SSE()))))
	mux.Handle(rt.MessagePath(), s.instrument("messages", router.Recover(s.protect(rt.Messages()))))
}

// protect requires a bearer token when auth is enabled.
func (s *HTTPServer) protect(next http.Handler) http.Handler {
	if s.opts.Auth == nil {
		return next
	}
	return authrouter.RequireBearerAuth(authrouter.BearerOptions{
		Verifier:            s.opts.Verifier,
		RequiredScopes:      s.opts.RequiredScopes,
		ResourceMetadataURL: s.opts.Auth.ResourceMetadataURL(),
	}, next)
}

func (s *HTTPServer) instrument(name string, next http.Handler) http.Handler {
	if s.opts.Metrics == nil {
		return next
	}
	return s.opts.Metrics.Instrument(name, next)
}

func (s *HTTPServer) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.opts.HealthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.opts.HealthCheck(ctx); err != nil {
			logging.Warn("Server", "Health check failed: %v", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Serve accepts connections on l until Shutdown is called.
func (s *HTTPServer) Serve(l net.Listener) error {
	logging.Info("Server", "Listening on %s", l.Addr())
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Listen opens the configured address.
func (s *HTTPServer) Listen() (net.Listener, error) {
	l, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.opts.Address, err)
	}
	return l, nil
}

// Shutdown stops accepting connections, runs OnShutdown and waits for active
// requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
