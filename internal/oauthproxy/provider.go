package oauthproxy

import "context"

// Provider is the set of OAuth operations the authorization endpoints
// delegate to.
type Provider interface {
	VerifyAccessToken(ctx context.Context, token string) (*AuthInfo, error)

	// GetClient returns a registered client, or ErrClientNotFound.
	GetClient(ctx context.Context, clientID string) (*ClientInformation, error)

	// RegisterClient registers a client upstream. It returns
	// ErrRegistrationUnsupported when RegistrationSupported is false.
	RegisterClient(ctx context.Context, metadata *ClientMetadata) (*ClientInformation, error)

	// AuthorizationURL builds the upstream URL the user agent is redirected
	// to for an authorization request.
	AuthorizationURL(client *ClientInformation, params AuthorizationParams) (string, error)

	ExchangeAuthorizationCode(ctx context.Context, client *ClientInformation, code, codeVerifier string) (*Tokens, error)
	ExchangeRefreshToken(ctx context.Context, client *ClientInformation, refreshToken string, scopes []string) (*Tokens, error)

	// RevokeToken revokes a token upstream. It returns
	// ErrRevocationUnsupported when RevocationSupported is false.
	RevokeToken(ctx context.Context, client *ClientInformation, token, tokenTypeHint string) error

	RegistrationSupported() bool
	RevocationSupported() bool
}

// TokenVerifier validates access tokens presented to protected endpoints.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*AuthInfo, error)
}

// UpstreamObserver is told about the outcome of every upstream call.
type UpstreamObserver interface {
	UpstreamCall(operation, outcome string)
}

// Upstream operations and outcomes reported to UpstreamObserver.
const (
	OpRegister     = "register"
	OpExchangeCode = "exchange_code"
	OpRefresh      = "refresh"
	OpRevoke       = "revoke"

	OutcomeSuccess         = "success"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeTransportError  = "transport_error"
	OutcomeInvalidResponse = "invalid_response"
)

type nopUpstreamObserver struct{}

func (nopUpstreamObserver) UpstreamCall(string, string) {}
