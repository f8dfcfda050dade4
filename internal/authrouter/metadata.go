package authrouter

import "net/http"

// AuthorizationServerMetadata is the RFC 8414 document.
type AuthorizationServerMetadata struct {
	Issuer                                 string   `json:"issuer"`
	ServiceDocumentation                   string   `json:"service_documentation,omitempty"`
	AuthorizationEndpoint                  string   `json:"authorization_endpoint"`
	ResponseTypesSupported                 []string `json:"response_types_supported"`
	CodeChallengeMethodsSupported          []string `json:"code_challenge_methods_supported"`
	TokenEndpoint                          string   `json:"token_endpoint"`
	TokenEndpointAuthMethodsSupported      []string `json:"token_endpoint_auth_methods_supported"`
	GrantTypesSupported                    []string `json:"grant_types_supported"`
	ScopesSupported                        []string `json:"scopes_supported,omitempty"`
	RevocationEndpoint                     string   `json:"revocation_endpoint,omitempty"`
	RevocationEndpointAuthMethodsSupported []string `json:"revocation_endpoint_auth_methods_supported,omitempty"`
	RegistrationEndpoint                   string   `json:"registration_endpoint,omitempty"`
}

// ProtectedResourceMetadata is the RFC 9728 document.
type ProtectedResourceMetadata struct {
	Resource              string   `json:"resource"`
	AuthorizationServers  []string `json:"authorization_servers"`
	ScopesSupported       []string `json:"scopes_supported,omitempty"`
	ResourceName          string   `json:"resource_name,omitempty"`
	ResourceDocumentation string   `json:"resource_documentation,omitempty"`
}

// AuthorizationServerMetadata describes this server's endpoints.
func (a *Router) AuthorizationServerMetadata() AuthorizationServerMetadata {
	md := AuthorizationServerMetadata{
		Issuer:                            a.issuer.String(),
		ServiceDocumentation:              a.cfg.ServiceDocumentationURL,
		AuthorizationEndpoint:             a.endpoint(AuthorizePath),
		ResponseTypesSupported:            []string{"code"},
		CodeChallengeMethodsSupported:     []string{"S256"},
		TokenEndpoint:                     a.endpoint(TokenPath),
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		ScopesSupported:                   a.cfg.ScopesSupported,
	}
	if a.provider.RevocationSupported() {
		md.RevocationEndpoint = a.endpoint(RevokePath)
		md.RevocationEndpointAuthMethodsSupported = []string{"client_secret_post"}
	}
	if a.provider.RegistrationSupported() {
		md.RegistrationEndpoint = a.endpoint(RegisterPath)
	}
	return md
}

// ProtectedResourceMetadata describes this server as a resource server.
func (a *Router) ProtectedResourceMetadata() ProtectedResourceMetadata {
	return ProtectedResourceMetadata{
		Resource:              a.base.String(),
		AuthorizationServers:  []string{a.issuer.String()},
		ScopesSupported:       a.cfg.ScopesSupported,
		ResourceName:          a.cfg.ResourceName,
		ResourceDocumentation: a.cfg.ServiceDocumentationURL,
	}
}

func (a *Router) serveAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET, OPTIONS")
		return
	}
	writeJSON(w, http.StatusOK, a.AuthorizationServerMetadata())
}

func (a *Router) serveProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET, OPTIONS")
		return
	}
	writeJSON(w, http.StatusOK, a.ProtectedResourceMetadata())
}
