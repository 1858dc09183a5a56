package p2p

import (
	"context"
	"fmt"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/celestiaorg/celestia-light/header"
)

// subscription handles retrieving headers from the header pubsub topic.
type subscription struct {
	topic        *pubsub.Topic
	subscription *pubsub.Subscription
}

// newSubscription creates a new header subscription to
// the given pubsub topic.
func newSubscription(topic *pubsub.Topic) (*subscription, error) {
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, err
	}

	return &subscription{
		topic:        topic,
		subscription: sub,
	}, nil
}

// NextHeader returns the next valid header announced in the network along with
// the peer that published it.
func (s *subscription) NextHeader(ctx context.Context) (*header.ExtendedHeader, peer.ID, error) {
	msg, err := s.subscription.Next(ctx)
	if err != nil {
		return nil, "", err
	}
	log.Debugw("received message", "topic", msg.Message.GetTopic(), "sender", msg.ReceivedFrom)

	h, ok := msg.ValidatorData.(*header.ExtendedHeader)
	if !ok {
		panic(fmt.Sprintf("invalid type received %T", msg.ValidatorData))
	}
	return h, msg.GetFrom(), nil
}

// Cancel cancels the subscription to the topic.
func (s *subscription) Cancel() {
	s.subscription.Cancel()
}
