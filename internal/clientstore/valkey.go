package clientstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"toolgate/pkg/logging"

	"github.com/valkey-io/valkey-go"
)

// DefaultValkeyAddress matches a Valkey or Redis server on the local host.
const DefaultValkeyAddress = "localhost:6379"

// ValkeyConfig configures the Valkey backend.
type ValkeyConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`

	// KeyPrefix is prepended to every client id. Empty keys records by the
	// bare client id.
	KeyPrefix string `yaml:"keyPrefix,omitempty"`

	TLSEnabled  bool          `yaml:"tlsEnabled"`
	DialTimeout time.Duration `yaml:"dialTimeout,omitempty"`
}

// Valkey stores records as plain string values without expiry.
type Valkey struct {
	client valkey.Client
	prefix string
}

// NewValkey connects to the configured server.
func NewValkey(cfg ValkeyConfig) (*Valkey, error) {
	if cfg.Address == "" {
		cfg.Address = DefaultValkeyAddress
	}

	opt := valkey.ClientOption{
		InitAddress: []string{cfg.Address},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	}
	if cfg.TLSEnabled {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.DialTimeout > 0 {
		opt.Dialer.Timeout = cfg.DialTimeout
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", cfg.Address, err)
	}

	logging.Info("ClientStore", "Using Valkey client store at %s", cfg.Address)
	return &Valkey{client: client, prefix: cfg.KeyPrefix}, nil
}

func (v *Valkey) key(clientID string) string {
	return v.prefix + clientID
}

func (v *Valkey) Get(ctx context.Context, clientID string) ([]byte, error) {
	record, err := v.client.Do(ctx, v.client.B().Get().Key(v.key(clientID)).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("valkey get %s: %w", clientID, err)
	}
	return record, nil
}

func (v *Valkey) Set(ctx context.Context, clientID string, record []byte) error {
	cmd := v.client.B().Set().Key(v.key(clientID)).Value(valkey.BinaryString(record)).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", clientID, err)
	}
	return nil
}

func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

func (v *Valkey) Close() error {
	v.client.Close()
	return nil
}
