package p2p

import (
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/host/peerstore/pstoremem"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-light/libs/keystore"
	"github.com/celestiaorg/celestia-light/nodebuilder/node"
)

func TestKey_Persisted(t *testing.T) {
	ks := keystore.NewMapKeystore()

	first, err := Key(ks)
	require.NoError(t, err)
	second, err := Key(ks)
	require.NoError(t, err)
	assert.True(t, first.Equals(second))

	pstore, err := pstoremem.NewPeerstore()
	require.NoError(t, err)
	pid, err := id(first, pstore)
	require.NoError(t, err)
	assert.True(t, first.Equals(pstore.PrivKey(pid)))
}

func TestUserAgent(t *testing.T) {
	build := &node.BuildInfo{
		SemanticVersion: "1.0.0",
		LastCommit:      "abcdefghijk",
	}
	assert.Equal(t, "celestia-light/mocha-4/v1.0.0/abcdefg", userAgent(Mocha, build))
	assert.Equal(t, "celestia-light/private/unknown/unknown", userAgent(Private, &node.BuildInfo{}))
}

func TestAddrsFactory(t *testing.T) {
	factory, err := addrsFactory(
		[]string{"/ip4/1.2.3.4/tcp/2121"},
		[]string{"/ip4/127.0.0.1/tcp/2121"},
	)()
	require.NoError(t, err)

	local := ma.StringCast("/ip4/127.0.0.1/tcp/2121")
	lan := ma.StringCast("/ip4/192.168.0.2/tcp/2121")
	out := factory([]ma.Multiaddr{local, lan})
	require.Len(t, out, 2)
	assert.Equal(t, "/ip4/1.2.3.4/tcp/2121", out[0].String())
	assert.True(t, lan.Equal(out[1]))

	_, err = addrsFactory([]string{"garbage"}, nil)()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.MutualPeers = []string{"/ip4/1.2.3.4/tcp/2121"} // no peer id
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ConnManager.Low = cfg.ConnManager.High + 1
	assert.Error(t, cfg.Validate())
}

func TestStartPeers(t *testing.T) {
	bs, err := BootstrappersFor(Mocha)
	require.NoError(t, err)

	stored := []peer.AddrInfo{
		bs[0], // duplicate
		{ID: bs[0].ID + "x"}, // no addresses
		{ID: "stored", Addrs: []ma.Multiaddr{ma.StringCast("/ip4/1.2.3.4/tcp/2121")}},
	}
	out := startPeers(bs, stored)
	require.Len(t, out, len(bs)+1)
	assert.Equal(t, peer.ID("stored"), out[len(out)-1].ID)
}
