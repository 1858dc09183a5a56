package discovery

import (
	"context"
	"fmt"

	"github.com/ipfs/go-datastore"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
)

// ProtocolPrefix scopes the DHT of the given network, so that the peers of
// different networks never share routing tables. The resulting protocol is
// /celestia/{network}/kad/1.0.0.
func ProtocolPrefix(network string) protocol.ID {
	return protocol.ID(fmt.Sprintf("/celestia/%s", network))
}

// NewDHT constructs the Kademlia DHT of the given network, seeded with the bootnodes.
// Basically, this provides a way to discover peer addresses by respecting public keys.
func NewDHT(
	ctx context.Context,
	network string,
	bootnodes []peer.AddrInfo,
	host host.Host,
	dataStore datastore.Batching,
	mode dht.ModeOpt,
) (*dht.IpfsDHT, error) {
	opts := []dht.Option{
		dht.BootstrapPeers(bootnodes...),
		dht.ProtocolPrefix(ProtocolPrefix(network)),
		dht.Datastore(dataStore),
		dht.Mode(mode),
	}

	return dht.New(ctx, host, opts...)
}
