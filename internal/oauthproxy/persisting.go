package oauthproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"toolgate/internal/clientstore"
	"toolgate/pkg/logging"
)

// PersistingProvider saves every successfully registered client and answers
// GetClient from the saved records. All other operations go to the wrapped
// Provider unchanged.
type PersistingProvider struct {
	Provider
	store clientstore.Store
}

var _ Provider = (*PersistingProvider)(nil)

func NewPersistingProvider(inner Provider, store clientstore.Store) *PersistingProvider {
	return &PersistingProvider{Provider: inner, store: store}
}

// GetClient loads and validates the saved record for clientID.
func (p *PersistingProvider) GetClient(ctx context.Context, clientID string) (*ClientInformation, error) {
	record, err := p.store.Get(ctx, clientID)
	if errors.Is(err, clientstore.ErrNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load client %s: %w", clientID, err)
	}

	info, err := ParseClientInformation(record)
	if err != nil {
		logging.Warn("OAuthProxy", "Stored record for client %s is invalid: %v", clientID, err)
		return nil, fmt.Errorf("load client %s: %w", clientID, err)
	}
	return info, nil
}

// RegisterClient registers upstream, then saves the validated record under
// its client id. A failed save fails the registration.
func (p *PersistingProvider) RegisterClient(ctx context.Context, metadata *ClientMetadata) (*ClientInformation, error) {
	info, err := p.Provider.RegisterClient(ctx, metadata)
	if err != nil {
		return nil, err
	}

	record, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal client %s: %w", info.ClientID, err)
	}
	if err := p.store.Set(ctx, info.ClientID, record); err != nil {
		logging.Error("OAuthProxy", err, "Failed to persist client %s", info.ClientID)
		return nil, fmt.Errorf("persist client %s: %w", info.ClientID, err)
	}

	logging.Debug("OAuthProxy", "Persisted client %s", info.ClientID)
	return info, nil
}
