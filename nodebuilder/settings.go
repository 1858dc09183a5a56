package nodebuilder

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.uber.org/fx"

	"github.com/celestiaorg/celestia-light/discovery"
	"github.com/celestiaorg/celestia-light/header/p2p"
	"github.com/celestiaorg/celestia-light/header/store"
	"github.com/celestiaorg/celestia-light/header/sync"
	"github.com/celestiaorg/celestia-light/libs/utils"
	"github.com/celestiaorg/celestia-light/nodebuilder/node"
	modp2p "github.com/celestiaorg/celestia-light/nodebuilder/p2p"
)

// WithNetwork specifies the Network to which the Node should connect to.
// WARNING: Use this option with caution and never run the Node with different networks over the same persisted Store.
func WithNetwork(net modp2p.Network) fx.Option {
	return fx.Replace(net)
}

// WithBootstrappers sets custom bootstrap peers.
func WithBootstrappers(peers modp2p.Bootstrappers) fx.Option {
	return fx.Replace(peers)
}

// WithMetrics enables metrics exporting for the node.
func WithMetrics(metricOpts []otlpmetrichttp.Option) fx.Option {
	return fx.Options(
		fx.Supply(metricOpts),
		fx.Invoke(initializeMetrics),
		fx.Invoke(func(s *store.Store) error {
			return s.WithMetrics()
		}),
		fx.Invoke(func(s *sync.Syncer) error {
			return s.WithMetrics()
		}),
		fx.Invoke(func(ex *p2p.Exchange) error {
			return ex.WithMetrics()
		}),
		fx.Invoke(func(serv *p2p.ExchangeServer) error {
			return serv.WithMetrics()
		}),
		fx.Invoke(func(d *discovery.Discovery) error {
			return d.WithMetrics()
		}),
	)
}

// initializeMetrics initializes the global meter provider.
func initializeMetrics(
	ctx context.Context,
	lc fx.Lifecycle,
	peerID peer.ID,
	network modp2p.Network,
	opts []otlpmetrichttp.Option,
) error {
	provider, err := utils.NewMeterProvider(ctx, utils.MeterProviderConfig{
		Network:     network.String(),
		Version:     node.GetBuildInfo().GetSemanticVersion(),
		InstanceID:  peerID.String(),
		OTLPOptions: opts,
	})
	if err != nil {
		return err
	}

	err = runtime.Start(runtime.WithMeterProvider(provider))
	if err != nil {
		return fmt.Errorf("start runtime metrics: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})

	otel.SetMeterProvider(provider)
	return nil
}
