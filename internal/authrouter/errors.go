package authrouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"toolgate/internal/oauthproxy"
	"toolgate/pkg/logging"
)

// OAuth error codes (RFC 6749 section 5.2, RFC 7591 section 3.2.2, RFC 6750).
const (
	ErrCodeInvalidRequest          = "invalid_request"
	ErrCodeInvalidClient           = "invalid_client"
	ErrCodeInvalidGrant            = "invalid_grant"
	ErrCodeInvalidScope            = "invalid_scope"
	ErrCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrCodeUnsupportedResponseType = "unsupported_response_type"
	ErrCodeServerError             = "server_error"
	ErrCodeInvalidClientMetadata   = "invalid_client_metadata"
	ErrCodeInvalidToken            = "invalid_token"
	ErrCodeInsufficientScope       = "insufficient_scope"
	ErrCodeMethodNotAllowed        = "method_not_allowed"
)

// oauthError is an error response of the authorization endpoints.
type oauthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Status      int    `json:"-"`
}

func (e *oauthError) Error() string {
	return e.Code + ": " + e.Description
}

func newError(status int, code, description string) *oauthError {
	return &oauthError{Code: code, Description: description, Status: status}
}

// toOAuthError maps provider errors to responses. Upstream and validation
// failures are server errors; anything unrecognised is hidden behind a
// generic description.
func toOAuthError(err error) *oauthError {
	var oe *oauthError
	if errors.As(err, &oe) {
		return oe
	}
	var se *oauthproxy.ServerError
	if errors.As(err, &se) {
		return newError(http.StatusInternalServerError, ErrCodeServerError, se.Error())
	}
	if errors.Is(err, oauthproxy.ErrNoRedirectURI) {
		return newError(http.StatusInternalServerError, ErrCodeServerError, "No redirect URI found for client")
	}
	var ve *oauthproxy.ValidationError
	if errors.As(err, &ve) {
		return newError(http.StatusInternalServerError, ErrCodeServerError, "Invalid response from authorization server")
	}
	return newError(http.StatusInternalServerError, ErrCodeServerError, "Internal Server Error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	oe := toOAuthError(err)
	if oe.Status >= http.StatusInternalServerError {
		logging.Error("AuthRouter", err, "Authorization request failed")
	}
	writeJSON(w, oe.Status, oe)
}

// redirectError reports an error to the client's redirect URI.
func redirectError(w http.ResponseWriter, r *http.Request, redirectURI, state string, err error) {
	oe := toOAuthError(err)
	if oe.Status >= http.StatusInternalServerError {
		logging.Error("AuthRouter", err, "Authorization request failed")
	}

	target, perr := url.Parse(redirectURI)
	if perr != nil {
		writeJSON(w, oe.Status, oe)
		return
	}
	q := target.Query()
	q.Set("error", oe.Code)
	if oe.Description != "" {
		q.Set("error_description", oe.Description)
	}
	if state != "" {
		q.Set("state", state)
	}
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, newError(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "The method is not allowed for this endpoint"))
}
