package authrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"toolgate/internal/oauthproxy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	clients      map[string]*oauthproxy.ClientInformation
	registration bool
	revocation   bool

	tokens      *oauthproxy.Tokens
	exchangeErr error
	verify      func(token string) (*oauthproxy.AuthInfo, error)

	gotCode     string
	gotVerifier string
	gotRefresh  string
	gotScopes   []string
	gotRevoked  string
	gotHint     string
	gotParams   oauthproxy.AuthorizationParams
	registered  *oauthproxy.ClientMetadata
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		clients: map[string]*oauthproxy.ClientInformation{
			"public": {
				ClientID:       "public",
				ClientMetadata: oauthproxy.ClientMetadata{RedirectURIs: []string{"https://app.example.com/cb"}},
			},
			"confidential": {
				ClientID:     "confidential",
				ClientSecret: "s3cret",
				ClientMetadata: oauthproxy.ClientMetadata{
					RedirectURIs: []string{"https://a.example.com/cb", "https://b.example.com/cb"},
					Scope:        "openid email",
				},
			},
			"expired": {
				ClientID:              "expired",
				ClientSecret:          "old",
				ClientSecretExpiresAt: 1,
				ClientMetadata:        oauthproxy.ClientMetadata{RedirectURIs: []string{"https://app.example.com/cb"}},
			},
		},
		registration: true,
		revocation:   true,
		tokens:       &oauthproxy.Tokens{AccessToken: "at", TokenType: "bearer", RefreshToken: "rt"},
	}
}

func (f *fakeProvider) VerifyAccessToken(_ context.Context, token string) (*oauthproxy.AuthInfo, error) {
	return f.verify(token)
}

func (f *fakeProvider) GetClient(_ context.Context, id string) (*oauthproxy.ClientInformation, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, oauthproxy.ErrClientNotFound
	}
	return c, nil
}

func (f *fakeProvider) RegisterClient(_ context.Context, md *oauthproxy.ClientMetadata) (*oauthproxy.ClientInformation, error) {
	f.registered = md
	return &oauthproxy.ClientInformation{ClientID: "new-client", ClientMetadata: *md}, nil
}

func (f *fakeProvider) AuthorizationURL(client *oauthproxy.ClientInformation, params oauthproxy.AuthorizationParams) (string, error) {
	f.gotParams = params
	return "https://idp.example.com/authorize?client_id=" + client.ClientID, nil
}

func (f *fakeProvider) ExchangeAuthorizationCode(_ context.Context, _ *oauthproxy.ClientInformation, code, verifier string) (*oauthproxy.Tokens, error) {
	f.gotCode, f.gotVerifier = code, verifier
	return f.tokens, f.exchangeErr
}

func (f *fakeProvider) ExchangeRefreshToken(_ context.Context, _ *oauthproxy.ClientInformation, refresh string, scopes []string) (*oauthproxy.Tokens, error) {
	f.gotRefresh, f.gotScopes = refresh, scopes
	return f.tokens, f.exchangeErr
}

func (f *fakeProvider) RevokeToken(_ context.Context, _ *oauthproxy.ClientInformation, token, hint string) error {
	f.gotRevoked, f.gotHint = token, hint
	return nil
}

func (f *fakeProvider) RegistrationSupported() bool { return f.registration }
func (f *fakeProvider) RevocationSupported() bool   { return f.revocation }

func newTestMux(t *testing.T, p *fakeProvider) *http.ServeMux {
	t.Helper()
	r, err := New(p, Config{
		IssuerURL:       "https://idp.example.com",
		BaseURL:         "https://mcp.example.com",
		ScopesSupported: []string{"openid"},
	})
	require.NoError(t, err)
	mux := http.NewServeMux()
	r.Register(mux)
	return mux
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) oauthError {
	t.Helper()
	var e oauthError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func postForm(mux http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestNew_ValidatesURLs(t *testing.T) {
	tests := []struct {
		name   string
		issuer string
		base   string
		ok     bool
	}{
		{"https", "https://idp.example.com", "https://mcp.example.com", true},
		{"localhost http", "http://localhost:8080", "http://127.0.0.1:5050", true},
		{"remote http issuer", "http://idp.example.com", "https://mcp.example.com", false},
		{"issuer with query", "https://idp.example.com?x=1", "https://mcp.example.com", false},
		{"empty base", "https://idp.example.com", "", false},
		{"bad scheme", "ftp://idp.example.com", "https://mcp.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(newFakeProvider(), Config{IssuerURL: tt.issuer, BaseURL: tt.base})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMetadata(t *testing.T) {
	p := newFakeProvider()
	mux := newTestMux(t, p)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, AuthorizationServerMetadataPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var md AuthorizationServerMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &md))
	assert.Equal(t, "https://idp.example.com", md.Issuer)
	assert.Equal(t, "https://mcp.example.com/authorize", md.AuthorizationEndpoint)
	assert.Equal(t, "https://mcp.example.com/token", md.TokenEndpoint)
	assert.Equal(t, "https://mcp.example.com/register", md.RegistrationEndpoint)
	assert.Equal(t, "https://mcp.example.com/revoke", md.RevocationEndpoint)
	assert.Equal(t, []string{"S256"}, md.CodeChallengeMethodsSupported)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ProtectedResourceMetadataPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var pr ProtectedResourceMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pr))
	assert.Equal(t, "https://mcp.example.com", pr.Resource)
	assert.Equal(t, []string{"https://idp.example.com"}, pr.AuthorizationServers)
}

func TestMetadata_OptionalEndpointsOmitted(t *testing.T) {
	p := newFakeProvider()
	p.registration = false
	p.revocation = false
	mux := newTestMux(t, p)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, AuthorizationServerMetadataPath, nil))
	assert.NotContains(t, rec.Body.String(), "registration_endpoint")
	assert.NotContains(t, rec.Body.String(), "revocation_endpoint")

	rec = postForm(mux, RegisterPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = postForm(mux, RevokePath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	mux := newTestMux(t, newFakeProvider())

	req := httptest.NewRequest(http.MethodOptions, TokenPath, nil)
	req.Header.Set("Origin", "https://inspector.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://inspector.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestAuthorize(t *testing.T) {
	p := newFakeProvider()
	mux := newTestMux(t, p)

	q := url.Values{
		"client_id":             {"public"},
		"response_type":         {"code"},
		"code_challenge":        {"challenge"},
		"code_challenge_method": {"S256"},
		"state":                 {"xyz"},
		"scope":                 {"openid email"},
		"resource":              {"https://mcp.example.com/mcp"},
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, AuthorizePath+"?"+q.Encode(), nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://idp.example.com/authorize?client_id=public", rec.Header().Get("Location"))
	assert.Equal(t, oauthproxy.AuthorizationParams{
		RedirectURI:   "https://app.example.com/cb",
		CodeChallenge: "challenge",
		State:         "xyz",
		Scopes:        []string{"openid", "email"},
		Resource:      "https://mcp.example.com/mcp",
	}, p.gotParams)
}

func TestAuthorize_DirectErrors(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		code  string
	}{
		{"missing client", url.Values{}, ErrCodeInvalidRequest},
		{"unknown client", url.Values{"client_id": {"nope"}}, ErrCodeInvalidClient},
		{"unregistered redirect", url.Values{"client_id": {"public"}, "redirect_uri": {"https://evil.example.com"}}, ErrCodeInvalidRequest},
		{"ambiguous redirect", url.Values{"client_id": {"confidential"}}, ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(t, newFakeProvider())
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, AuthorizePath+"?"+tt.query.Encode(), nil))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestAuthorize_RedirectErrors(t *testing.T) {
	base := func() url.Values {
		return url.Values{
			"client_id":             {"confidential"},
			"redirect_uri":          {"https://b.example.com/cb"},
			"response_type":         {"code"},
			"code_challenge":        {"c"},
			"code_challenge_method": {"S256"},
			"state":                 {"st"},
		}
	}
	tests := []struct {
		name   string
		modify func(url.Values)
		code   string
	}{
		{"response type", func(v url.Values) { v.Set("response_type", "token") }, ErrCodeUnsupportedResponseType},
		{"missing challenge", func(v url.Values) { v.Del("code_challenge") }, ErrCodeInvalidRequest},
		{"plain challenge", func(v url.Values) { v.Set("code_challenge_method", "plain") }, ErrCodeInvalidRequest},
		{"relative resource", func(v url.Values) { v.Set("resource", "/mcp") }, ErrCodeInvalidRequest},
		{"unregistered scope", func(v url.Values) { v.Set("scope", "openid admin") }, ErrCodeInvalidScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(t, newFakeProvider())
			q := base()
			tt.modify(q)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, AuthorizePath+"?"+q.Encode(), nil))

			require.Equal(t, http.StatusFound, rec.Code)
			loc, err := url.Parse(rec.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "b.example.com", loc.Host)
			assert.Equal(t, tt.code, loc.Query().Get("error"))
			assert.Equal(t, "st", loc.Query().Get("state"))
		})
	}
}

func TestToken_AuthorizationCode(t *testing.T) {
	p := newFakeProvider()
	mux := newTestMux(t, p)

	rec := postForm(mux, TokenPath, url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"confidential"},
		"client_secret": {"s3cret"},
		"code":          {"the-code"},
		"code_verifier": {"verifier"},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "the-code", p.gotCode)
	assert.Equal(t, "verifier", p.gotVerifier)

	var tokens oauthproxy.Tokens
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	assert.Equal(t, "at", tokens.AccessToken)
}

func TestToken_RefreshToken(t *testing.T) {
	p := newFakeProvider()
	mux := newTestMux(t, p)

	rec := postForm(mux, TokenPath, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {"public"},
		"refresh_token": {"rt"},
		"scope":         {"openid email"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rt", p.gotRefresh)
	assert.Equal(t, []string{"openid", "email"}, p.gotScopes)
}

func TestToken_Errors(t *testing.T) {
	tests := []struct {
		name   string
		form   url.Values
		status int
		code   string
	}{
		{"missing client", url.Values{"grant_type": {"authorization_code"}}, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"unknown client", url.Values{"client_id": {"nope"}}, http.StatusBadRequest, ErrCodeInvalidClient},
		{"missing secret", url.Values{"client_id": {"confidential"}}, http.StatusBadRequest, ErrCodeInvalidClient},
		{"wrong secret", url.Values{"client_id": {"confidential"}, "client_secret": {"nope"}}, http.StatusBadRequest, ErrCodeInvalidClient},
		{"expired secret", url.Values{"client_id": {"expired"}, "client_secret": {"old"}}, http.StatusBadRequest, ErrCodeInvalidClient},
		{"missing grant", url.Values{"client_id": {"public"}}, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"unsupported grant", url.Values{"client_id": {"public"}, "grant_type": {"password"}}, http.StatusBadRequest, ErrCodeUnsupportedGrantType},
		{"missing code", url.Values{"client_id": {"public"}, "grant_type": {"authorization_code"}}, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"missing refresh token", url.Values{"client_id": {"public"}, "grant_type": {"refresh_token"}}, http.StatusBadRequest, ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(t, newFakeProvider())
			rec := postForm(mux, TokenPath, tt.form)

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestToken_UpstreamFailure(t *testing.T) {
	p := newFakeProvider()
	p.exchangeErr = &oauthproxy.ServerError{Operation: "Token exchange", Status: http.StatusBadGateway}
	mux := newTestMux(t, p)

	rec := postForm(mux, TokenPath, url.Values{
		"grant_type": {"authorization_code"},
		"client_id":  {"public"},
		"code":       {"c"},
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, ErrCodeServerError, e.Code)
	assert.Equal(t, "Token exchange failed: 502", e.Description)
}

func TestToken_MethodNotAllowed(t *testing.T) {
	mux := newTestMux(t, newFakeProvider())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, TokenPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))
}

func TestRegister(t *testing.T) {
	p := newFakeProvider()
	mux := newTestMux(t, p)

	body := `{"redirect_uris":["https://app.example.com/cb"],"client_name":"inspector"}`
	req := httptest.NewRequest(http.MethodPost, RegisterPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, p.registered)
	assert.Equal(t, "inspector", p.registered.ClientName)

	var info oauthproxy.ClientInformation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "new-client", info.ClientID)
}

func TestRegister_InvalidMetadata(t *testing.T) {
	p := newFakeProvider()
	mux := newTestMux(t, p)

	req := httptest.NewRequest(http.MethodPost, RegisterPath, strings.NewReader(`{"client_name":"no redirects"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeInvalidClientMetadata, decodeError(t, rec).Code)
	assert.Nil(t, p.registered)
}

func TestRevoke(t *testing.T) {
	p := newFakeProvider()
	mux := newTestMux(t, p)

	rec := postForm(mux, RevokePath, url.Values{
		"client_id":       {"public"},
		"token":           {"at"},
		"token_type_hint": {"access_token"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
	assert.Equal(t, "at", p.gotRevoked)
	assert.Equal(t, "access_token", p.gotHint)

	rec = postForm(mux, RevokePath, url.Values{"client_id": {"public"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireBearerAuth(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := newFakeProvider()
	p.verify = func(token string) (*oauthproxy.AuthInfo, error) {
		switch token {
		case "good":
			return &oauthproxy.AuthInfo{Token: token, ClientID: "c", Scopes: []string{"openid", "email"}}, nil
		case "narrow":
			return &oauthproxy.AuthInfo{Token: token, ClientID: "c", Scopes: []string{"email"}}, nil
		case "stale":
			return &oauthproxy.AuthInfo{Token: token, ClientID: "c", Scopes: []string{"openid"}, ExpiresAt: now.Add(-time.Minute)}, nil
		case "broken":
			return nil, errors.New("verifier exploded")
		}
		return nil, oauthproxy.ErrInvalidToken
	}

	var seen *oauthproxy.AuthInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AuthInfoFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireBearerAuth(BearerOptions{
		Verifier:            p,
		RequiredScopes:      []string{"openid"},
		ResourceMetadataURL: "https://mcp.example.com/.well-known/oauth-protected-resource",
		now:                 func() time.Time { return now },
	}, next)

	tests := []struct {
		name   string
		header string
		status int
		desc   string
	}{
		{"valid", "Bearer good", http.StatusNoContent, ""},
		{"missing", "", http.StatusUnauthorized, "Missing Authorization header"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Invalid Authorization header format, expected 'Bearer TOKEN'"},
		{"no token", "Bearer", http.StatusUnauthorized, "Invalid Authorization header format, expected 'Bearer TOKEN'"},
		{"rejected", "Bearer bad", http.StatusUnauthorized, "invalid access token"},
		{"insufficient scope", "Bearer narrow", http.StatusForbidden, "Insufficient scope"},
		{"expired", "Bearer stale", http.StatusUnauthorized, "Token has expired"},
		{"verifier failure", "Bearer broken", http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/sse", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, "good", seen.Token)
				return
			}
			assert.Nil(t, seen)
			assert.Equal(t, tt.desc, decodeError(t, rec).Description)

			if tt.status == http.StatusInternalServerError {
				assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
				return
			}
			challenge := rec.Header().Get("WWW-Authenticate")
			assert.True(t, strings.HasPrefix(challenge, "Bearer error="), challenge)
			assert.Contains(t, challenge, `resource_metadata="https://mcp.example.com/.well-known/oauth-protected-resource"`)
		})
	}
}
