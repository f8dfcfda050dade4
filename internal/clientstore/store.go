package clientstore

import (
	"context"
	"errors"
	"fmt"
)

// Backend names accepted by New.
const (
	BackendValkey = "valkey"
	BackendMemory = "memory"
)

// ErrNotFound is returned by Get when no record exists for a client id.
var ErrNotFound = errors.New("client record not found")

// Store is a key-value store for client records.
type Store interface {
	// Get returns the record saved for clientID, or ErrNotFound.
	Get(ctx context.Context, clientID string) ([]byte, error)
	// Set saves the record for clientID, replacing any previous value.
	Set(ctx context.Context, clientID string, record []byte) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string       `yaml:"backend"`
	Valkey  ValkeyConfig `yaml:"valkey"`
}

// New creates the store selected by cfg.Backend.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendValkey:
		return NewValkey(cfg.Valkey)
	case BackendMemory, "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported client store: %s (supported: %s, %s)", cfg.Backend, BackendMemory, BackendValkey)
	}
}
