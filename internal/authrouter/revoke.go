package authrouter

import (
	"errors"
	"net/http"

	"toolgate/internal/oauthproxy"
)

func (a *Router) serveRevoke(w http.ResponseWriter, r *http.Request) {
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

	token := r.PostForm.Get("token")
	if token == "" {
		writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "token is required"))
		return
	}

	err = a.provider.RevokeToken(r.Context(), client, token, r.PostForm.Get("token_type_hint"))
	if errors.Is(err, oauthproxy.ErrRevocationUnsupported) {
		writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "Token revocation is not supported"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}
