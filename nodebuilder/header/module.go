package header

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/fx"

	"github.com/celestiaorg/celestia-light/header/p2p"
	"github.com/celestiaorg/celestia-light/header/store"
	"github.com/celestiaorg/celestia-light/header/sync"
)

var log = logging.Logger("module/header")

// ConstructModule collects the components that keep the header chain of the node in sync:
// the store, the exchange with its server, the gossip subscriber and the Syncer itself.
func ConstructModule(cfg *Config) fx.Option {
	cfgErr := cfg.Validate()

	return fx.Module(
		"header",
		fx.Supply(*cfg),
		fx.Error(cfgErr),
		fx.Provide(fx.Annotate(
			newStore,
			fx.OnStart(func(ctx context.Context, store *store.Store) error {
				return store.Start(ctx)
			}),
			fx.OnStop(func(ctx context.Context, store *store.Store) error {
				return store.Stop(ctx)
			}),
		)),
		fx.Provide(newExchange),
		fx.Provide(fx.Annotate(
			newExchangeServer,
			fx.OnStart(func(ctx context.Context, server *p2p.ExchangeServer) error {
				return server.Start(ctx)
			}),
			fx.OnStop(func(ctx context.Context, server *p2p.ExchangeServer) error {
				return server.Stop(ctx)
			}),
		)),
		fx.Provide(fx.Annotate(
			newSubscriber,
			fx.OnStart(func(ctx context.Context, sub *p2p.Subscriber) error {
				return sub.Start(ctx)
			}),
			fx.OnStop(func(ctx context.Context, sub *p2p.Subscriber) error {
				return sub.Stop(ctx)
			}),
		)),
		fx.Provide(fx.Annotate(
			newSyncer,
			fx.OnStart(func(ctx context.Context, syncer *sync.Syncer) error {
				return syncer.Start(ctx)
			}),
			fx.OnStop(func(ctx context.Context, syncer *sync.Syncer) error {
				return syncer.Stop(ctx)
			}),
		)),
	)
}
