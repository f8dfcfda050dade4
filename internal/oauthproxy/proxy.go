package oauthproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"toolgate/pkg/logging"

	"golang.org/x/oauth2"
)

// DefaultHTTPTimeout bounds every upstream call.
const DefaultHTTPTimeout = 30 * time.Second

// maxResponseBytes bounds upstream response bodies.
const maxResponseBytes = 1 << 20

// Endpoints are the upstream identity provider URLs.
type Endpoints struct {
	AuthorizationURL string
	TokenURL         string
	// RevocationURL is optional.
	RevocationURL string
	// RegistrationURL is optional; without it clients cannot register.
	RegistrationURL string
}

// Config configures a Proxy.
type Config struct {
	Endpoints  Endpoints
	Verifier   TokenVerifier
	HTTPClient *http.Client
	Observer   UpstreamObserver
}

// Proxy forwards OAuth operations to the upstream endpoints.
type Proxy struct {
	endpoints  Endpoints
	verifier   TokenVerifier
	httpClient *http.Client
	observer   UpstreamObserver
}

var _ Provider = (*Proxy)(nil)

// NewProxy creates a proxy for cfg. The authorization and token endpoints
// are required.
func NewProxy(cfg Config) (*Proxy, error) {
	for name, raw := range map[string]string{
		"authorization": cfg.Endpoints.AuthorizationURL,
		"token":         cfg.Endpoints.TokenURL,
	} {
		if raw == "" {
			return nil, fmt.Errorf("%s endpoint is required", name)
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return nil, fmt.Errorf("invalid %s endpoint: %w", name, err)
		}
	}

	p := &Proxy{
		endpoints:  cfg.Endpoints,
		verifier:   cfg.Verifier,
		httpClient: cfg.HTTPClient,
		observer:   cfg.Observer,
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if p.observer == nil {
		p.observer = nopUpstreamObserver{}
	}
	return p, nil
}

func (p *Proxy) RegistrationSupported() bool { return p.endpoints.RegistrationURL != "" }

func (p *Proxy) RevocationSupported() bool { return p.endpoints.RevocationURL != "" }

func (p *Proxy) VerifyAccessToken(ctx context.Context, token string) (*AuthInfo, error) {
	if p.verifier == nil {
		return nil, ErrInvalidToken
	}
	return p.verifier.Verify(ctx, token)
}

// GetClient always fails: the upstream cannot look clients up by id.
func (p *Proxy) GetClient(_ context.Context, _ string) (*ClientInformation, error) {
	return nil, ErrClientNotFound
}

func (p *Proxy) RegisterClient(ctx context.Context, metadata *ClientMetadata) (*ClientInformation, error) {
	if !p.RegistrationSupported() {
		return nil, ErrRegistrationUnsupported
	}

	payload, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal client metadata: %w", err)
	}

	body, err := p.post(ctx, OpRegister, "Client registration", p.endpoints.RegistrationURL, "application/json", payload)
	if err != nil {
		return nil, err
	}

	info, err := ParseClientInformation(body)
	if err != nil {
		p.observer.UpstreamCall(OpRegister, OutcomeInvalidResponse)
		return nil, err
	}
	p.observer.UpstreamCall(OpRegister, OutcomeSuccess)
	logging.Info("OAuthProxy", "Registered client %s upstream", info.ClientID)
	return info, nil
}

func (p *Proxy) AuthorizationURL(client *ClientInformation, params AuthorizationParams) (string, error) {
	cfg := oauth2.Config{
		ClientID:    client.ClientID,
		RedirectURL: params.RedirectURI,
		Scopes:      params.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.endpoints.AuthorizationURL,
			TokenURL: p.endpoints.TokenURL,
		},
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", params.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	if params.Resource != "" {
		opts = append(opts, oauth2.SetAuthURLParam("resource", params.Resource))
	}
	return cfg.AuthCodeURL(params.State, opts...), nil
}

func (p *Proxy) ExchangeAuthorizationCode(ctx context.Context, client *ClientInformation, code, codeVerifier string) (*Tokens, error) {
	if len(client.RedirectURIs) == 0 || client.RedirectURIs[0] == "" {
		logging.Error("OAuthProxy", ErrNoRedirectURI, "Cannot exchange code for client %s", client.ClientID)
		return nil, ErrNoRedirectURI
	}
	redirectURI := client.RedirectURIs[0]
	logging.Debug("OAuthProxy", "Exchanging authorization code for client %s with redirect URI %s", client.ClientID, redirectURI)

	f := (&form{}).
		add("grant_type", "authorization_code").
		add("client_id", client.ClientID).
		add("redirect_uri", redirectURI).
		add("code", code).
		addIf("client_secret", client.ClientSecret).
		addIf("code_verifier", codeVerifier)

	return p.requestTokens(ctx, OpExchangeCode, "Token exchange", f)
}

func (p *Proxy) ExchangeRefreshToken(ctx context.Context, client *ClientInformation, refreshToken string, scopes []string) (*Tokens, error) {
	f := (&form{}).
		add("grant_type", "refresh_token").
		add("client_id", client.ClientID).
		add("refresh_token", refreshToken).
		addIf("client_secret", client.ClientSecret).
		addIf("scope", strings.Join(scopes, " "))

	return p.requestTokens(ctx, OpRefresh, "Token refresh", f)
}

func (p *Proxy) RevokeToken(ctx context.Context, client *ClientInformation, token, tokenTypeHint string) error {
	if !p.RevocationSupported() {
		return ErrRevocationUnsupported
	}

	f := (&form{}).
		add("token", token).
		add("client_id", client.ClientID).
		addIf("token_type_hint", tokenTypeHint).
		addIf("client_secret", client.ClientSecret)

	if _, err := p.post(ctx, OpRevoke, "Token revocation", p.endpoints.RevocationURL, "application/x-www-form-urlencoded", []byte(f.encode())); err != nil {
		return err
	}
	p.observer.UpstreamCall(OpRevoke, OutcomeSuccess)
	return nil
}

func (p *Proxy) requestTokens(ctx context.Context, op, label string, f *form) (*Tokens, error) {
	body, err := p.post(ctx, op, label, p.endpoints.TokenURL, "application/x-www-form-urlencoded", []byte(f.encode()))
	if err != nil {
		return nil, err
	}

	tokens, err := ParseTokens(body)
	if err != nil {
		p.observer.UpstreamCall(op, OutcomeInvalidResponse)
		return nil, err
	}
	p.observer.UpstreamCall(op, OutcomeSuccess)
	return tokens, nil
}

// post sends one request upstream and returns the body of a 2xx response.
// Failures are reported to the observer here; success is reported by the
// caller once the body has been validated.
func (p *Proxy) post(ctx context.Context, op, label, endpoint, contentType string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", strings.ToLower(label), err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.observer.UpstreamCall(op, OutcomeTransportError)
		return nil, fmt.Errorf("%s request failed: %w", strings.ToLower(label), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		p.observer.UpstreamCall(op, OutcomeTransportError)
		return nil, fmt.Errorf("failed to read %s response: %w", strings.ToLower(label), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.observer.UpstreamCall(op, OutcomeUpstreamError)
		// The body may carry hints about the client; keep it out of errors.
		logging.Debug("OAuthProxy", "%s failed: status=%d body=%s", label, resp.StatusCode, string(body))
		return nil, &ServerError{Operation: label, Status: resp.StatusCode}
	}
	return body, nil
}

// IsServerError reports whether err is, or wraps, an upstream ServerError.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}
