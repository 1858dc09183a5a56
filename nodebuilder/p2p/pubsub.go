package p2p

import (
	"context"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"go.uber.org/fx"

	"github.com/celestiaorg/celestia-light/libs/fxutil"
)

// pubSub provides a constructor for PubSub protocol with GossipSub routing.
// Every message must be signed by its author, so that headers can be attributed
// to the peer that published them.
func pubSub(params pubSubParams) (*pubsub.PubSub, error) {
	fpeers, err := params.Cfg.mutualPeers()
	if err != nil {
		return nil, err
	}

	opts := []pubsub.Option{
		pubsub.WithPeerExchange(params.Cfg.PeerExchange),
		pubsub.WithDirectPeers(fpeers),
		pubsub.WithMessageSignaturePolicy(pubsub.StrictSign),
	}

	return pubsub.NewGossipSub(
		fxutil.WithLifecycle(params.Ctx, params.Lc),
		params.Host,
		opts...,
	)
}

type pubSubParams struct {
	fx.In

	Ctx  context.Context
	Lc   fx.Lifecycle
	Cfg  Config
	Host host.Host
}
