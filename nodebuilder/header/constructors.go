package header

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ipfs/go-datastore"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"

	"github.com/celestiaorg/celestia-light/discovery"
	"github.com/celestiaorg/celestia-light/header/p2p"
	"github.com/celestiaorg/celestia-light/header/store"
	"github.com/celestiaorg/celestia-light/header/sync"
	modp2p "github.com/celestiaorg/celestia-light/nodebuilder/p2p"
)

func newStore(cfg Config, ds datastore.Batching) (*store.Store, error) {
	return store.NewStore(ds, store.WithParams(cfg.Store))
}

func newExchange(cfg Config, host host.Host, network modp2p.Network) (*p2p.Exchange, error) {
	return p2p.NewExchange(host, network.String(), p2p.WithParams(cfg.Client))
}

func newExchangeServer(
	cfg Config,
	host host.Host,
	store *store.Store,
	network modp2p.Network,
) (*p2p.ExchangeServer, error) {
	return p2p.NewExchangeServer(host, store, network.String(), p2p.WithParams(cfg.Server))
}

func newSubscriber(ps *pubsub.PubSub, network modp2p.Network) *p2p.Subscriber {
	return p2p.NewSubscriber(ps, network.String())
}

// newSyncer constructs new Syncer for headers, anchored at the genesis of the network.
func newSyncer(
	cfg Config,
	network modp2p.Network,
	store *store.Store,
	ex *p2p.Exchange,
	disc *discovery.Discovery,
	sub *p2p.Subscriber,
) (*sync.Syncer, error) {
	genesisOpts, err := genesisOptions(cfg, network)
	if err != nil {
		return nil, err
	}

	opts := append([]sync.Option{sync.WithParams(cfg.Syncer)}, genesisOpts...)
	return sync.NewSyncer(store, ex, disc, sub, opts...)
}

// genesisOptions anchors the Syncer at the genesis of the network. Only a Private network
// may go without one, in which case the first header is trusted as is.
func genesisOptions(cfg Config, network modp2p.Network) ([]sync.Option, error) {
	configured, err := cfg.genesisHash()
	if err != nil {
		return nil, err
	}

	genesis, err := modp2p.GenesisFor(network)
	switch {
	case errors.Is(err, modp2p.ErrNoGenesis):
		if configured != nil {
			return []sync.Option{sync.WithGenesis(configured)}, nil
		}
		log.Warnw("no genesis hash for the network, trusting the first header received", "network", network)
		return []sync.Option{sync.WithTrustUnanchoredGenesis(true)}, nil
	case err != nil:
		return nil, err
	}

	if configured != nil && !bytes.Equal(configured, genesis) {
		return nil, fmt.Errorf("module/header: configured genesis %X conflicts with the genesis of %s: %s",
			configured, network, genesis)
	}
	return []sync.Option{sync.WithGenesis(genesis)}, nil
}
