package sync

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/celestiaorg/celestia-light/header"
)

// Store is the part of the header store the Syncer writes to.
// The Syncer is expected to be its only writer.
type Store interface {
	Height() uint64
	Head(context.Context) (*header.ExtendedHeader, error)
	Append(context.Context, *header.ExtendedHeader) error
}

// Exchange requests headers from a particular peer.
type Exchange interface {
	// Head asks the peer for the head of its chain.
	Head(ctx context.Context, from peer.ID) (*header.ExtendedHeader, error)
	// GetRangeByHeight asks the peer for up to amount headers starting at the given height.
	GetRangeByHeight(ctx context.Context, from peer.ID, height, amount uint64) ([]*header.ExtendedHeader, error)
}

// Discovery finds peers to request headers from.
type Discovery interface {
	// Peers lists routable peers, best first.
	Peers(context.Context) ([]peer.ID, error)
	// Penalize lowers the peer's rank by the given weight.
	Penalize(peer.ID, float64)
	// Reward raises the peer's rank.
	Reward(peer.ID)
}
