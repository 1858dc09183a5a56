package p2p

import (
	"github.com/ipfs/go-datastore"
	coreconnmgr "github.com/libp2p/go-libp2p/core/connmgr"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/p2p/host/peerstore/pstoremem"
	"github.com/libp2p/go-libp2p/p2p/net/conngater"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
)

const (
	protectedMutual    = "protected-mutual"
	protectedBootstrap = "protected-bootstrap"
)

// connectionManager provides a constructor for ConnectionManager.
// Mutual peers and bootstrappers are protected from being trimmed.
func connectionManager(cfg Config, bpeers Bootstrappers) (coreconnmgr.ConnManager, error) {
	fpeers, err := cfg.mutualPeers()
	if err != nil {
		return nil, err
	}

	cm, err := connmgr.NewConnManager(
		cfg.ConnManager.Low,
		cfg.ConnManager.High,
		connmgr.WithGracePeriod(cfg.ConnManager.GracePeriod),
	)
	if err != nil {
		return nil, err
	}
	for _, info := range fpeers {
		cm.Protect(info.ID, protectedMutual)
	}
	for _, info := range bpeers {
		cm.Protect(info.ID, protectedBootstrap)
	}

	return cm, nil
}

// connectionGater constructs a BasicConnectionGater persisting blocked peers in the datastore.
func connectionGater(ds datastore.Batching) (*conngater.BasicConnectionGater, error) {
	return conngater.NewBasicConnectionGater(ds)
}

// peerStore constructs an in-memory PeerStore.
func peerStore() (peerstore.Peerstore, error) {
	return pstoremem.NewPeerstore()
}
