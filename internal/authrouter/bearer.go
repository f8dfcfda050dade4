package authrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"toolgate/internal/oauthproxy"
	"toolgate/pkg/logging"
)

type contextKey int

const authInfoKey contextKey = iota

// WithAuthInfo returns a context carrying info.
func WithAuthInfo(ctx context.Context, info *oauthproxy.AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}

// AuthInfoFromContext returns the verified token of the request, if any.
func AuthInfoFromContext(ctx context.Context) (*oauthproxy.AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey).(*oauthproxy.AuthInfo)
	return info, ok && info != nil
}

// AccessTokenVerifier validates bearer tokens. oauthproxy.Provider
// implements it.
type AccessTokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*oauthproxy.AuthInfo, error)
}

// BearerOptions configures RequireBearerAuth.
type BearerOptions struct {
	Verifier       AccessTokenVerifier
	RequiredScopes []string
	// ResourceMetadataURL is advertised in WWW-Authenticate challenges.
	ResourceMetadataURL string

	now func() time.Time
}

// RequireBearerAuth rejects requests without a valid bearer token. The
// verified token is stored in the request context.
func RequireBearerAuth(opts BearerOptions, next http.Handler) http.Handler {
	now := opts.now
	if now == nil {
		now = time.Now
	}

	challenge := func(w http.ResponseWriter, e *oauthError) {
		v := fmt.Sprintf(`Bearer error="%s", error_description="%s"`, e.Code, e.Description)
		if opts.ResourceMetadataURL != "" {
			v += fmt.Sprintf(`, resource_metadata="%s"`, opts.ResourceMetadataURL)
		}
		w.Header().Set("WWW-Authenticate", v)
		writeJSON(w, e.Status, e)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			challenge(w, newError(http.StatusUnauthorized, ErrCodeInvalidToken, "Missing Authorization header"))
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			challenge(w, newError(http.StatusUnauthorized, ErrCodeInvalidToken, "Invalid Authorization header format, expected 'Bearer TOKEN'"))
			return
		}

		info, err := opts.Verifier.VerifyAccessToken(r.Context(), token)
		if errors.Is(err, oauthproxy.ErrInvalidToken) {
			challenge(w, newError(http.StatusUnauthorized, ErrCodeInvalidToken, err.Error()))
			return
		}
		if err != nil {
			logging.Error("AuthRouter", err, "Token verification failed")
			writeJSON(w, http.StatusInternalServerError, newError(http.StatusInternalServerError, ErrCodeServerError, "Internal Server Error"))
			return
		}

		if !info.HasScopes(opts.RequiredScopes) {
			challenge(w, newError(http.StatusForbidden, ErrCodeInsufficientScope, "Insufficient scope"))
			return
		}
		if !info.ExpiresAt.IsZero() && info.ExpiresAt.Before(now()) {
			challenge(w, newError(http.StatusUnauthorized, ErrCodeInvalidToken, "Token has expired"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAuthInfo(r.Context(), info)))
	})
}
