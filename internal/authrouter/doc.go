// Package authrouter serves the OAuth 2.0 authorization server surface in
// front of an oauthproxy.Provider and guards resource endpoints with bearer
// tokens.
//
// Mounted endpoints:
//
//	GET  /.well-known/oauth-authorization-server   RFC 8414 metadata
//	GET  /.well-known/oauth-protected-resource     RFC 9728 metadata
//	GET  /authorize                                redirect to the upstream
//	POST /token                                    code and refresh grants
//	POST /register                                 RFC 7591, when supported
//	POST /revoke                                   RFC 7009, when supported
//
// RequireBearerAuth verifies the Authorization header through the provider
// and stores the resulting AuthInfo in the request context.
package authrouter
