// Package oauthproxy forwards OAuth 2.0 operations to an upstream identity
// provider.
//
// Proxy is the plain forwarding implementation of Provider: it builds
// authorization redirects, registers clients and exchanges codes and refresh
// tokens against the configured upstream endpoints. It keeps no state, and
// because the upstream offers no way to look a client up by id, its
// GetClient always reports ErrClientNotFound.
//
// PersistingProvider wraps any Provider and fills that gap. Every record
// returned by a successful registration is saved in a clientstore.Store under
// its client id, and GetClient answers from the store:
//
//	proxy := oauthproxy.NewProxy(oauthproxy.Config{Endpoints: endpoints, Verifier: verifier})
//	provider := oauthproxy.NewPersistingProvider(proxy, store)
//
// Upstream responses are validated against JSON schemas before they are
// trusted. No operation is retried.
package oauthproxy
