package p2p

import (
	"context"

	"github.com/ipfs/go-datastore"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/routing"
	"go.uber.org/fx"

	"github.com/celestiaorg/celestia-light/discovery"
)

// newDHT constructs the DHT of the network. It is bootstrapped by Discovery on start.
func newDHT(
	ctx context.Context,
	lc fx.Lifecycle,
	cfg Config,
	network Network,
	bootstrappers Bootstrappers,
	host HostBase,
	dataStore datastore.Batching,
) (*dht.IpfsDHT, error) {
	mode := dht.ModeClient
	if cfg.DHTServer {
		mode = dht.ModeServer
	}

	dht, err := discovery.NewDHT(ctx, network.String(), bootstrappers, host, dataStore, mode)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return dht.Close()
		},
	})
	return dht, nil
}

func peerRouting(dht *dht.IpfsDHT) routing.PeerRouting {
	return dht
}
