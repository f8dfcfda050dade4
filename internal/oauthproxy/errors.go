package oauthproxy

import (
	"errors"
	"fmt"
)

var (
	// ErrClientNotFound is returned by GetClient for unknown client ids.
	ErrClientNotFound = errors.New("client not found")

	// ErrRegistrationUnsupported is returned by RegisterClient when no
	// registration endpoint is configured.
	ErrRegistrationUnsupported = errors.New("dynamic client registration is not supported")

	// ErrRevocationUnsupported is returned by RevokeToken when no revocation
	// endpoint is configured.
	ErrRevocationUnsupported = errors.New("token revocation is not supported")

	// ErrNoRedirectURI is returned when a client has no registered redirect
	// URI to exchange a code for.
	ErrNoRedirectURI = errors.New("no redirect URI found for client")

	// ErrInvalidToken is returned by verifiers for tokens they reject.
	ErrInvalidToken = errors.New("invalid access token")
)

// ServerError is an upstream call that completed with a non-success status.
type ServerError struct {
	Operation string
	Status    int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s failed: %d", e.Operation, e.Status)
}

// ValidationError is an upstream response that does not match its schema.
type ValidationError struct {
	Schema string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Schema, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
