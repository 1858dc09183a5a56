package p2p

import (
	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/fx"
)

var log = logging.Logger("module/p2p")

// ConstructModule collects all the components and services related to p2p.
func ConstructModule(cfg *Config) fx.Option {
	// sanitize config values before constructing module
	cfgErr := cfg.Validate()

	return fx.Module(
		"p2p",
		fx.Supply(*cfg),
		fx.Error(cfgErr),
		fx.Provide(bootstrappers),
		fx.Provide(Key),
		fx.Provide(id),
		fx.Provide(peerStore),
		fx.Provide(connectionManager),
		fx.Provide(connectionGater),
		fx.Provide(resourceManager),
		fx.Provide(addrsFactory(cfg.AnnounceAddresses, cfg.NoAnnounceAddresses)),
		fx.Provide(newHost),
		fx.Provide(routedHost),
		fx.Provide(newDHT),
		fx.Provide(peerRouting),
		fx.Provide(pubSub),
		fx.Provide(peerIDStore),
		fx.Provide(newDiscovery),
		fx.Invoke(Listen(cfg.ListenAddresses)),
	)
}
