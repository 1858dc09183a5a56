package nodebuilder

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/celestiaorg/celestia-light/nodebuilder/p2p"
)

// MockStore provides mock in memory Store for testing purposes.
func MockStore(t *testing.T, cfg *Config) Store {
	t.Helper()
	store := NewMemStore()

	err := store.PutConfig(cfg)
	require.NoError(t, err)
	return store
}

// TestNode constructs a Light Node on the Private network with the default config.
func TestNode(t *testing.T, opts ...fx.Option) *Node {
	return TestNodeWithConfig(t, DefaultConfig(), opts...)
}

// TestNodeWithConfig constructs a Light Node on the Private network that listens
// on a random local port only.
func TestNodeWithConfig(t *testing.T, cfg *Config, opts ...fx.Option) *Node {
	// avoids port conflicts
	cfg.P2P.ListenAddresses = []string{"/ip4/127.0.0.1/tcp/0"}
	cfg.P2P.NoAnnounceAddresses = []string{}

	store := MockStore(t, cfg)
	nd, err := New(p2p.Private, store, opts...)
	require.NoError(t, err)
	return nd
}
