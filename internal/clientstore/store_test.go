package clientstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := New(Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = New(Config{Backend: "etcd"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported client store")
}

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	id := "client-" + uuid.NewString()

	_, err := s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	record := []byte(`{"client_id":"` + id + `","redirect_uris":["https://app.example.com/cb"]}`)
	require.NoError(t, s.Set(ctx, id, record))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, string(record), string(got))

	require.NoError(t, s.Ping(ctx))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)
	assert.Equal(t, 1, m.Len())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	record := []byte(`{"client_id":"a"}`)
	require.NoError(t, m.Set(ctx, "a", record))
	record[0] = 'X'

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	got[1] = 'Y'

	again, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, `{"client_id":"a"}`, string(again))
}

// TestValkey runs against a real server when VALKEY_TEST_ADDRESS is set.
func TestValkey(t *testing.T) {
	addr := os.Getenv("VALKEY_TEST_ADDRESS")
	if addr == "" {
		t.Skip("VALKEY_TEST_ADDRESS not set")
	}

	v, err := NewValkey(ValkeyConfig{Address: addr, KeyPrefix: "toolgate-test:"})
	require.NoError(t, err)
	defer v.Close()

	exerciseStore(t, v)
}

func TestValkey_KeyPrefix(t *testing.T) {
	v := &Valkey{prefix: "toolgate:clients:"}
	assert.Equal(t, "toolgate:clients:abc", v.key("abc"))

	bare := &Valkey{}
	assert.Equal(t, "abc", bare.key("abc"))
}
