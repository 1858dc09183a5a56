package nodebuilder

import (
	"context"

	"go.uber.org/fx"

	"github.com/celestiaorg/celestia-light/libs/fxutil"
	"github.com/celestiaorg/celestia-light/nodebuilder/header"
	"github.com/celestiaorg/celestia-light/nodebuilder/p2p"
)

// ConstructModule collects all the modules of the light node over the given Store.
func ConstructModule(network p2p.Network, cfg *Config, store Store) fx.Option {
	network, err := network.Validate()
	if err != nil {
		return fx.Error(err)
	}

	baseComponents := fx.Options(
		fx.Supply(network),
		fx.Provide(func(lc fx.Lifecycle) context.Context {
			return fxutil.WithLifecycle(context.Background(), lc)
		}),
		fx.Supply(cfg),
		fx.Provide(store.Datastore),
		fx.Provide(store.Keystore),
		// modules provided by the node
		p2p.ConstructModule(&cfg.P2P),
		header.ConstructModule(&cfg.Header),
	)

	return fx.Module(
		"node",
		baseComponents,
	)
}
