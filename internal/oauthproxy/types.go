package oauthproxy

import (
	"encoding/json"
	"time"
)

// AuthInfo is the result of verifying an access token.
type AuthInfo struct {
	Token     string
	ClientID  string
	Scopes    []string
	ExpiresAt time.Time
}

// HasScopes reports whether every scope in required was granted.
func (a *AuthInfo) HasScopes(required []string) bool {
	granted := make(map[string]struct{}, len(a.Scopes))
	for _, s := range a.Scopes {
		granted[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := granted[s]; !ok {
			return false
		}
	}
	return true
}

// ClientMetadata is the client-supplied part of a dynamic registration
// (RFC 7591).
type ClientMetadata struct {
	RedirectURIs            []string        `json:"redirect_uris"`
	TokenEndpointAuthMethod string          `json:"token_endpoint_auth_method,omitempty"`
	GrantTypes              []string        `json:"grant_types,omitempty"`
	ResponseTypes           []string        `json:"response_types,omitempty"`
	ClientName              string          `json:"client_name,omitempty"`
	ClientURI               string          `json:"client_uri,omitempty"`
	LogoURI                 string          `json:"logo_uri,omitempty"`
	Scope                   string          `json:"scope,omitempty"`
	Contacts                []string        `json:"contacts,omitempty"`
	TOSURI                  string          `json:"tos_uri,omitempty"`
	PolicyURI               string          `json:"policy_uri,omitempty"`
	JWKSURI                 string          `json:"jwks_uri,omitempty"`
	JWKS                    json.RawMessage `json:"jwks,omitempty"`
	SoftwareID              string          `json:"software_id,omitempty"`
	SoftwareVersion         string          `json:"software_version,omitempty"`
	SoftwareStatement       string          `json:"software_statement,omitempty"`
}

// ClientInformation is a registered client: the identifiers assigned by the
// upstream plus the registered metadata.
type ClientInformation struct {
	ClientID              string `json:"client_id"`
	ClientSecret          string `json:"client_secret,omitempty"`
	ClientIDIssuedAt      int64  `json:"client_id_issued_at,omitempty"`
	ClientSecretExpiresAt int64  `json:"client_secret_expires_at,omitempty"`
	ClientMetadata
}

// HasRedirectURI reports whether uri is one of the registered redirect URIs.
func (c *ClientInformation) HasRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

// SecretExpired reports whether the client secret expired before now.
// A zero expiry never expires.
func (c *ClientInformation) SecretExpired(now time.Time) bool {
	return c.ClientSecretExpiresAt != 0 && c.ClientSecretExpiresAt < now.Unix()
}

// Tokens is an upstream token response.
type Tokens struct {
	AccessToken  string      `json:"access_token"`
	IDToken      string      `json:"id_token,omitempty"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    json.Number `json:"expires_in,omitempty"`
	Scope        string      `json:"scope,omitempty"`
	RefreshToken string      `json:"refresh_token,omitempty"`
}

// AuthorizationParams are the parameters of an authorization request that
// are forwarded upstream.
type AuthorizationParams struct {
	RedirectURI   string
	CodeChallenge string
	State         string
	Scopes        []string
	Resource      string
}
