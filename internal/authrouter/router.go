package authrouter

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"toolgate/internal/oauthproxy"
	"toolgate/pkg/logging"
)

// Endpoint paths served by the router.
const (
	AuthorizationServerMetadataPath = "/.well-known/oauth-authorization-server"
	ProtectedResourceMetadataPath   = "/.well-known/oauth-protected-resource"
	AuthorizePath                   = "/authorize"
	TokenPath                       = "/token"
	RegisterPath                    = "/register"
	RevokePath                      = "/revoke"
)

// Config configures the authorization router.
type Config struct {
	// IssuerURL is the upstream issuer advertised in metadata.
	IssuerURL string
	// BaseURL is the public URL of this server. Endpoints are advertised
	// relative to it.
	BaseURL string

	ServiceDocumentationURL string
	ScopesSupported         []string
	ResourceName            string
}

// Router serves the authorization endpoints.
type Router struct {
	provider oauthproxy.Provider
	issuer   *url.URL
	base     *url.URL
	cfg      Config
	now      func() time.Time
}

// New creates a router for provider. Both URLs must be https, or http on a
// loopback host.
func New(provider oauthproxy.Provider, cfg Config) (*Router, error) {
	issuer, err := parsePublicURL("issuer", cfg.IssuerURL)
	if err != nil {
		return nil, err
	}
	if issuer.RawQuery != "" || issuer.Fragment != "" {
		return nil, fmt.Errorf("issuer URL must not have a query or fragment: %s", cfg.IssuerURL)
	}
	base, err := parsePublicURL("base", cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	return &Router{
		provider: provider,
		issuer:   issuer,
		base:     base,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// Register mounts the authorization endpoints on mux.
func (a *Router) Register(mux *http.ServeMux) {
	mux.Handle(AuthorizationServerMetadataPath, allowCORS(http.HandlerFunc(a.serveAuthorizationServerMetadata)))
	mux.Handle(ProtectedResourceMetadataPath, allowCORS(http.HandlerFunc(a.serveProtectedResourceMetadata)))
	mux.HandleFunc(AuthorizePath, a.serveAuthorize)
	mux.Handle(TokenPath, allowCORS(http.HandlerFunc(a.serveToken)))

	if a.provider.RegistrationSupported() {
		mux.Handle(RegisterPath, allowCORS(http.HandlerFunc(a.serveRegister)))
	}
	if a.provider.RevocationSupported() {
		mux.Handle(RevokePath, allowCORS(http.HandlerFunc(a.serveRevoke)))
	}

	logging.Info("AuthRouter", "Registered OAuth endpoints (issuer %s)", a.issuer)
}

// ResourceMetadataURL is the protected resource metadata document advertised
// in WWW-Authenticate challenges.
func (a *Router) ResourceMetadataURL() string {
	return a.endpoint(ProtectedResourceMetadataPath)
}

func (a *Router) endpoint(path string) string {
	return a.base.ResolveReference(&url.URL{Path: path}).String()
}

// parsePublicURL checks that raw is usable as a public OAuth URL: https, or
// plain http for local development.
func parsePublicURL(name, raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%s URL cannot be empty", name)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s URL: %w", name, err)
	}

	switch u.Scheme {
	case "https":
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return nil, fmt.Errorf("%s URL must use HTTPS outside of localhost (got: %s)", name, raw)
		}
	default:
		return nil, fmt.Errorf("invalid %s URL scheme: %q. Must be http (localhost only) or https", name, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%s URL has no host: %s", name, raw)
	}
	return u, nil
}

// allowCORS lets browser-based clients call the metadata and token
// endpoints from any origin.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if origin := r.Header.Get("Origin"); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		if r.Method == http.MethodOptions {
			if m := r.Header.Get("Access-Control-Request-Method"); m != "" {
				h.Set("Access-Control-Allow-Methods", m)
			}
			h.Set("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", "Authorization", "MCP-Protocol-Version"}, ", "))
			h.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
