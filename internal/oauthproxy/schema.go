package oauthproxy

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	schemaBaseURL           = "https://toolgate.local/schemas/"
	clientMetadataSchema    = "client-metadata.json"
	clientInformationSchema = "client-information.json"
	tokensSchema            = "tokens.json"
)

//go:embed schemas/*.json
var schemaFS embed.FS

type schemaSet struct {
	clientMetadata    *jsonschema.Schema
	clientInformation *jsonschema.Schema
	tokens            *jsonschema.Schema
}

var loadSchemas = sync.OnceValues(compileSchemas)

func compileSchemas() (*schemaSet, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	for _, name := range []string{clientMetadataSchema, clientInformationSchema, tokensSchema} {
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", name, err)
		}
		if err := c.AddResource(schemaBaseURL+name, doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}

	set := &schemaSet{}
	var err error
	if set.clientMetadata, err = c.Compile(schemaBaseURL + clientMetadataSchema); err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", clientMetadataSchema, err)
	}
	if set.clientInformation, err = c.Compile(schemaBaseURL + clientInformationSchema); err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", clientInformationSchema, err)
	}
	if set.tokens, err = c.Compile(schemaBaseURL + tokensSchema); err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", tokensSchema, err)
	}
	return set, nil
}

// ParseClientMetadata validates a registration request body and decodes it.
func ParseClientMetadata(body []byte) (*ClientMetadata, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	var md ClientMetadata
	if err := decodeValidated(schemas.clientMetadata, "client metadata", body, &md); err != nil {
		return nil, err
	}
	return &md, nil
}

// ParseClientInformation validates body as a registered client record and
// decodes it. Unknown fields are dropped.
func ParseClientInformation(body []byte) (*ClientInformation, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	var info ClientInformation
	if err := decodeValidated(schemas.clientInformation, "client information", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ParseTokens validates body as a token response and decodes it.
func ParseTokens(body []byte) (*Tokens, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	var tokens Tokens
	if err := decodeValidated(schemas.tokens, "token response", body, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func decodeValidated(schema *jsonschema.Schema, name string, body []byte, out any) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return &ValidationError{Schema: name, Err: err}
	}
	if err := schema.Validate(inst); err != nil {
		return &ValidationError{Schema: name, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ValidationError{Schema: name, Err: err}
	}
	return nil
}
