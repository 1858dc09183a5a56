package header

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Subscriber gives access to headers announced over gossip.
type Subscriber interface {
	// Subscribe creates a new Subscription to announced headers.
	Subscribe() (Subscription, error)
}

// Subscription yields announced headers one by one.
type Subscription interface {
	// NextHeader returns the next announced header along with the peer that announced it.
	NextHeader(context.Context) (*ExtendedHeader, peer.ID, error)
	// Cancel cancels the subscription.
	Cancel()
}
