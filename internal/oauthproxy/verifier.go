package oauthproxy

import (
	"context"
	"fmt"
	"strings"

	"toolgate/pkg/logging"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultStaticScopes are the scopes StaticVerifier grants.
var DefaultStaticScopes = []string{"openid", "email", "profile"}

// StaticVerifier accepts any non-empty token on behalf of a fixed client.
// It is meant for deployments where the upstream's tokens are opaque and
// validated further downstream.
type StaticVerifier struct {
	ClientID string
	Scopes   []string
}

func (v StaticVerifier) Verify(_ context.Context, token string) (*AuthInfo, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	logging.Debug("OAuthProxy", "Accepting token %s for client %s", NewRedactedToken(token), v.ClientID)

	scopes := v.Scopes
	if scopes == nil {
		scopes = DefaultStaticScopes
	}
	return &AuthInfo{
		Token:    token,
		ClientID: v.ClientID,
		Scopes:   append([]string(nil), scopes...),
	}, nil
}

// JWTVerifierConfig configures a JWTVerifier.
type JWTVerifierConfig struct {
	// Algorithm is one of HS256, HS384, HS512, RS256, RS384, RS512.
	Algorithm string
	// Key is the shared secret for HS* or a PEM encoded public key for RS*.
	Key string

	Issuer   string
	Audience string
}

// JWTVerifier validates signed JWT access tokens.
type JWTVerifier struct {
	alg    string
	key    any
	parser *jwt.Parser
}

func NewJWTVerifier(cfg JWTVerifierConfig) (*JWTVerifier, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("jwt verifier: key is required")
	}
	alg := strings.ToUpper(cfg.Algorithm)
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}

	var key any
	switch alg {
	case "HS256", "HS384", "HS512":
		key = []byte(cfg.Key)
	case "RS256", "RS384", "RS512":
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.Key))
		if err != nil {
			return nil, fmt.Errorf("jwt verifier: parse public key: %w", err)
		}
		key = pub
	default:
		return nil, fmt.Errorf("jwt verifier: unsupported algorithm %q", cfg.Algorithm)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &JWTVerifier{alg: alg, key: key, parser: jwt.NewParser(opts...)}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*AuthInfo, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	info := &AuthInfo{
		Token:    token,
		ClientID: firstStringClaim(claims, "client_id", "azp", "sub"),
		Scopes:   scopesFromClaims(claims),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if info.ClientID == "" {
		return nil, fmt.Errorf("%w: no client identifier claim", ErrInvalidToken)
	}
	return info, nil
}

func firstStringClaim(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		if s, ok := claims[name].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// scopesFromClaims reads the space separated "scope" claim, falling back to
// the "scp" array some issuers use.
func scopesFromClaims(claims jwt.MapClaims) []string {
	if s, ok := claims["scope"].(string); ok {
		return strings.Fields(s)
	}
	var scopes []string
	if list, ok := claims["scp"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				scopes = append(scopes, s)
			}
		}
	}
	return scopes
}
