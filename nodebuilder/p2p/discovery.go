package p2p

import (
	"context"

	"github.com/ipfs/go-datastore"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	hst "github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/net/conngater"
	"go.uber.org/fx"

	"github.com/celestiaorg/celestia-light/discovery"
	"github.com/celestiaorg/celestia-light/libs/pidstore"
)

// bootstrappers provides the peers the node starts from: the configured ones,
// or the network defaults if none are configured.
func bootstrappers(cfg Config, net Network) (Bootstrappers, error) {
	if len(cfg.Bootnodes) != 0 {
		return cfg.bootnodes()
	}
	return BootstrappersFor(net)
}

func peerIDStore(ctx context.Context, ds datastore.Batching) (*pidstore.PeerIDStore, error) {
	return pidstore.NewPeerIDStore(ctx, ds)
}

// newDiscovery constructs Discovery over the DHT. Besides the bootstrappers, it starts from
// the peers it was connected to before the last shutdown, and persists the best ranked ones on stop.
// Misbehaving peers are blocked through the node's connection gater.
func newDiscovery(
	ctx context.Context,
	lc fx.Lifecycle,
	cfg Config,
	net Network,
	host hst.Host,
	r *dht.IpfsDHT,
	gater *conngater.BasicConnectionGater,
	bpeers Bootstrappers,
	pstore *pidstore.PeerIDStore,
) (*discovery.Discovery, error) {
	stored, err := pstore.Load(ctx)
	if err != nil {
		return nil, err
	}

	opts := []discovery.Option{
		discovery.WithPeersLimit(cfg.Discovery.PeersLimit),
		discovery.WithDiscoveryInterval(cfg.Discovery.Interval),
		discovery.WithAdvertiseInterval(cfg.Discovery.AdvertiseInterval),
		discovery.WithRequireBootnodes(net.IsPublic()),
	}
	disc, err := discovery.NewDiscovery(host, r, gater, startPeers(bpeers, stored), opts...)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: disc.Start,
		OnStop: func(ctx context.Context) error {
			persistPeers(ctx, host, disc, pstore, int(cfg.Discovery.PeersLimit))
			return disc.Stop(ctx)
		},
	})
	return disc, nil
}

// startPeers merges bootstrappers with the stored peers, bootstrappers first.
func startPeers(bpeers Bootstrappers, stored []peer.AddrInfo) []peer.AddrInfo {
	seen := make(map[peer.ID]struct{}, len(bpeers)+len(stored))
	out := make([]peer.AddrInfo, 0, len(bpeers)+len(stored))
	for _, infos := range [][]peer.AddrInfo{bpeers, stored} {
		for _, info := range infos {
			if _, ok := seen[info.ID]; ok || len(info.Addrs) == 0 {
				continue
			}
			seen[info.ID] = struct{}{}
			out = append(out, info)
		}
	}
	return out
}

func persistPeers(
	ctx context.Context,
	host hst.Host,
	disc *discovery.Discovery,
	pstore *pidstore.PeerIDStore,
	limit int,
) {
	peers, err := disc.Peers(ctx)
	if err != nil {
		log.Warnw("listing peers to persist", "err", err)
		return
	}
	if len(peers) > limit {
		peers = peers[:limit]
	}

	infos := make([]peer.AddrInfo, 0, len(peers))
	for _, p := range peers {
		info := host.Peerstore().PeerInfo(p)
		if len(info.Addrs) != 0 {
			infos = append(infos, info)
		}
	}
	if err := pstore.Put(ctx, infos); err != nil {
		log.Warnw("persisting peers", "err", err)
	}
}
