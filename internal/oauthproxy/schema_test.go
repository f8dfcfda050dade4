package oauthproxy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientInformation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"minimal", `{"client_id":"a","redirect_uris":["http://localhost/cb"]}`, false},
		{"full", `{"client_id":"a","client_secret":"s","client_id_issued_at":1,"client_secret_expires_at":0,"redirect_uris":["https://x.example.com/cb"],"grant_types":["authorization_code","refresh_token"],"client_uri":"https://x.example.com","jwks":{"keys":[]}}`, false},
		{"missing client_id", `{"redirect_uris":["http://localhost/cb"]}`, true},
		{"missing redirect_uris", `{"client_id":"a"}`, true},
		{"redirect uri not a uri", `{"client_id":"a","redirect_uris":["not a uri"]}`, true},
		{"client_id wrong type", `{"client_id":1,"redirect_uris":[]}`, true},
		{"not an object", `["a"]`, true},
		{"not json", `<html>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseClientInformation([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				var ve *ValidationError
				assert.True(t, errors.As(err, &ve))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a", info.ClientID)
		})
	}
}

func TestParseTokens(t *testing.T) {
	tokens, err := ParseTokens([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600.5,"unknown":true}`))
	require.NoError(t, err)
	assert.Equal(t, "at", tokens.AccessToken)
	assert.Equal(t, "3600.5", tokens.ExpiresIn.String())

	_, err = ParseTokens([]byte(`{"access_token":"at"}`))
	assert.Error(t, err)

	_, err = ParseTokens([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":"3600"}`))
	assert.Error(t, err)
}

func TestParseClientMetadata(t *testing.T) {
	md, err := ParseClientMetadata([]byte(`{"redirect_uris":["http://localhost:6274/cb"],"client_name":"Inspector","grant_types":["authorization_code"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:6274/cb"}, md.RedirectURIs)
	assert.Equal(t, "Inspector", md.ClientName)

	for _, body := range []string{
		`{}`,
		`{"redirect_uris":[]}`,
		`{"redirect_uris":["relative/path"]}`,
		`{"redirect_uris":["http://localhost/cb"],"client_uri":"nope"}`,
	} {
		_, err := ParseClientMetadata([]byte(body))
		assert.Error(t, err, body)
	}
}
