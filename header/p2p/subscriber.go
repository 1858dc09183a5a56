package p2p

import (
	"context"
	"fmt"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/multierr"

	"github.com/celestiaorg/celestia-light/header"
)

// Subscriber manages the lifecycle and relationship of the node with
// the "header-sub" gossipsub topic.
type Subscriber struct {
	pubsubTopicID string

	pubsub *pubsub.PubSub
	topic  *pubsub.Topic
}

// NewSubscriber returns a Subscriber that manages the node's
// relationship with the "header-sub" gossipsub topic of the given network.
func NewSubscriber(ps *pubsub.PubSub, network string) *Subscriber {
	return &Subscriber{
		pubsubTopicID: pubsubTopicID(network),
		pubsub:        ps,
	}
}

// Start registers the topic validator for the "header-sub"
// topic and joins it.
func (s *Subscriber) Start(context.Context) (err error) {
	if err = s.pubsub.RegisterTopicValidator(s.pubsubTopicID, s.validate); err != nil {
		return fmt.Errorf("header/p2p: registering topic validator: %w", err)
	}

	log.Infow("joining topic", "topic ID", s.pubsubTopicID)
	s.topic, err = s.pubsub.Join(s.pubsubTopicID, pubsub.WithTopicMessageIdFn(header.MsgID))
	return err
}

// Stop closes the topic and unregisters its validator.
func (s *Subscriber) Stop(context.Context) error {
	err := s.pubsub.UnregisterTopicValidator(s.pubsubTopicID)
	if s.topic != nil {
		err = multierr.Combine(err, s.topic.Close())
	}
	return err
}

// Subscribe returns a new subscription to the Subscriber's topic.
func (s *Subscriber) Subscribe() (header.Subscription, error) {
	if s.topic == nil {
		return nil, fmt.Errorf("header topic is not instantiated, service must be started before subscribing")
	}
	return newSubscription(s.topic)
}

// Broadcast broadcasts the given header to the topic.
func (s *Subscriber) Broadcast(ctx context.Context, h *header.ExtendedHeader, opts ...pubsub.PubOpt) error {
	bin, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	return s.topic.Publish(ctx, bin, opts...)
}

// validate drops messages that are not well-formed headers, so that they are
// neither delivered nor relayed. Verifying against the local chain is left to the subscribers.
func (s *Subscriber) validate(_ context.Context, from peer.ID, msg *pubsub.Message) pubsub.ValidationResult {
	h, err := header.UnmarshalExtendedHeader(msg.Data)
	if err != nil {
		log.Warnw("unmarshalling header", "from", from.ShortString(), "err", err)
		return pubsub.ValidationReject
	}
	if err = h.Validate(); err != nil {
		log.Warnw("invalid header", "from", from.ShortString(), "height", h.Height(), "hash", h.Hash(), "err", err)
		return pubsub.ValidationReject
	}

	msg.ValidatorData = h
	return pubsub.ValidationAccept
}
