package authrouter

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"toolgate/internal/oauthproxy"
	"toolgate/pkg/logging"
)

// authenticateClient resolves the client of a token or revocation request
// from its client_id and client_secret form parameters.
func (a *Router) authenticateClient(r *http.Request) (*oauthproxy.ClientInformation, error) {
	clientID := r.PostForm.Get("client_id")
	if clientID == "" {
		return nil, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "client_id is required")
	}

	client, err := a.provider.GetClient(r.Context(), clientID)
	if errors.Is(err, oauthproxy.ErrClientNotFound) {
		return nil, newError(http.StatusBadRequest, ErrCodeInvalidClient, "Invalid client_id")
	}
	if err != nil {
		return nil, err
	}

	if client.ClientSecret != "" {
		secret := r.PostForm.Get("client_secret")
		if secret == "" {
			return nil, newError(http.StatusBadRequest, ErrCodeInvalidClient, "Client secret is required")
		}
		if subtle.ConstantTimeCompare([]byte(secret), []byte(client.ClientSecret)) != 1 {
			return nil, newError(http.StatusBadRequest, ErrCodeInvalidClient, "Invalid client_secret")
		}
		if client.SecretExpired(a.now()) {
			return nil, newError(http.StatusBadRequest, ErrCodeInvalidClient, "Client secret has expired")
		}
	}
	return client, nil
}

func (a *Router) serveToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST, OPTIONS")
		return
	}
	w.Header().Set("Cache-Control", "no-store")

	if err := r.ParseForm(); err != nil {
		writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "Malformed request body"))
		return
	}

	client, err := a.authenticateClient(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var tokens *oauthproxy.Tokens
	switch grant := r.PostForm.Get("grant_type"); grant {
	case "authorization_code":
		code := r.PostForm.Get("code")
		if code == "" {
			writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "code is required"))
			return
		}
		tokens, err = a.provider.ExchangeAuthorizationCode(r.Context(), client, code, r.PostForm.Get("code_verifier"))

	case "refresh_token":
		refresh := r.PostForm.Get("refresh_token")
		if refresh == "" {
			writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "refresh_token is required"))
			return
		}
		tokens, err = a.provider.ExchangeRefreshToken(r.Context(), client, refresh, strings.Fields(r.PostForm.Get("scope")))

	case "":
		writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "grant_type is required"))
		return

	default:
		writeError(w, newError(http.StatusBadRequest, ErrCodeUnsupportedGrantType, "The grant type is not supported by this authorization server."))
		return
	}

	if err != nil {
		writeError(w, err)
		return
	}

	logging.Debug("AuthRouter", "Issued tokens to client %s", client.ClientID)
	writeJSON(w, http.StatusOK, tokens)
}
