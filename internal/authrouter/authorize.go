package authrouter

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"toolgate/internal/oauthproxy"
	"toolgate/pkg/logging"
)

// serveAuthorize validates an authorization request and redirects the user
// agent to the upstream. Until the redirect URI is known to belong to the
// client, errors are answered directly; afterwards they are sent to the
// redirect URI.
func (a *Router) serveAuthorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, "GET, POST")
		return
	}
	w.Header().Set("Cache-Control", "no-store")

	if err := r.ParseForm(); err != nil {
		writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "Malformed request"))
		return
	}
	params := r.Form

	clientID := params.Get("client_id")
	if clientID == "" {
		writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "client_id is required"))
		return
	}

	client, err := a.provider.GetClient(r.Context(), clientID)
	if errors.Is(err, oauthproxy.ErrClientNotFound) {
		writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidClient, "Invalid client_id"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	redirectURI := params.Get("redirect_uri")
	switch {
	case redirectURI != "":
		if !client.HasRedirectURI(redirectURI) {
			writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "Unregistered redirect_uri"))
			return
		}
	case len(client.RedirectURIs) == 1:
		redirectURI = client.RedirectURIs[0]
	default:
		writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "redirect_uri must be specified when client has multiple registered URIs"))
		return
	}

	state := params.Get("state")
	fail := func(code, description string) {
		redirectError(w, r, redirectURI, state, newError(http.StatusBadRequest, code, description))
	}

	if rt := params.Get("response_type"); rt != "code" {
		fail(ErrCodeUnsupportedResponseType, "response_type must be code")
		return
	}
	challenge := params.Get("code_challenge")
	if challenge == "" {
		fail(ErrCodeInvalidRequest, "code_challenge is required")
		return
	}
	if m := params.Get("code_challenge_method"); m != "S256" {
		fail(ErrCodeInvalidRequest, "code_challenge_method must be S256")
		return
	}

	resource := params.Get("resource")
	if resource != "" {
		if u, err := url.Parse(resource); err != nil || !u.IsAbs() {
			fail(ErrCodeInvalidRequest, "resource must be an absolute URL")
			return
		}
	}

	scopes := strings.Fields(params.Get("scope"))
	if client.Scope != "" {
		allowed := make(map[string]bool)
		for _, s := range strings.Fields(client.Scope) {
			allowed[s] = true
		}
		for _, s := range scopes {
			if !allowed[s] {
				fail(ErrCodeInvalidScope, "Client was not registered with scope "+s)
				return
			}
		}
	}

	target, err := a.provider.AuthorizationURL(client, oauthproxy.AuthorizationParams{
		RedirectURI:   redirectURI,
		CodeChallenge: challenge,
		State:         state,
		Scopes:        scopes,
		Resource:      resource,
	})
	if err != nil {
		redirectError(w, r, redirectURI, state, err)
		return
	}

	logging.Debug("AuthRouter", "Redirecting client %s to upstream authorization", clientID)
	http.Redirect(w, r, target, http.StatusFound)
}
