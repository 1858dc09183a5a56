package pidstore

import (
	"context"
	"testing"
	"time"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/sync"
	libhost "github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutLoad(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	mn, err := mocknet.FullMeshConnected(5)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = mn.Close()
	})

	addrinfos := make([]peer.AddrInfo, 5)
	for i, host := range mn.Hosts() {
		addrinfos[i] = *libhost.InfoFromHost(host)
	}

	peerstore, err := NewPeerIDStore(ctx, sync.MutexWrap(datastore.NewMapDatastore()))
	require.NoError(t, err)

	empty, err := peerstore.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	err = peerstore.Put(ctx, addrinfos)
	require.NoError(t, err)

	retrievedPeerlist, err := peerstore.Load(ctx)
	require.NoError(t, err)

	require.Len(t, retrievedPeerlist, len(addrinfos))
	for i := range addrinfos {
		assert.Equal(t, addrinfos[i].ID, retrievedPeerlist[i].ID)
		assert.ElementsMatch(t, addrinfos[i].Addrs, retrievedPeerlist[i].Addrs)
	}
}

func TestCorruptedStoreIsReset(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	ds := sync.MutexWrap(datastore.NewMapDatastore())
	err := ds.Put(ctx, storePrefix.Child(peersKey), []byte("not json"))
	require.NoError(t, err)

	peerstore, err := NewPeerIDStore(ctx, ds)
	require.NoError(t, err)

	peers, err := peerstore.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, peers)
}
