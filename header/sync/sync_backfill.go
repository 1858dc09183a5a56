package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/celestiaorg/celestia-light/header"
	"github.com/celestiaorg/celestia-light/header/store"
)

var (
	errUnreachable = errors.New("no peer served the range")
	errUnconfirmed = errors.New("no peer has headers towards the announced head")
)

type rangeResult struct {
	peer    peer.ID
	from    uint64
	amount  uint64
	headers []*header.ExtendedHeader
	err     error
}

// requestNext moves the local chain towards the network head. It takes headers from
// the pending cache while they continue the chain and requests the next range from
// the best untried peer otherwise. Once the network head is reached, the Syncer follows.
func (s *Syncer) requestNext(ctx context.Context) {
	if s.inflight {
		return
	}

	s.applyPending(ctx)
	if s.State().State == Stalled {
		return
	}

	from := s.height() + 1
	if from > s.remoteHeight {
		s.transition(ctx, Following)
		return
	}
	s.transition(ctx, Backfilling)

	if from != s.triedFrom {
		clear(s.tried)
		s.triedFrom = from
	}

	peers, err := s.discovery.Peers(ctx)
	if err != nil || len(peers) == 0 {
		log.Warnw("no peers to backfill from, bootstrapping", "err", err)
		s.bootstrap(ctx)
		return
	}

	idx := slices.IndexFunc(peers, func(p peer.ID) bool {
		_, ok := s.tried[p]
		return !ok
	})
	if idx == -1 {
		if s.anyLacking() {
			s.dropUnconfirmed(ctx, from)
			return
		}
		s.stall(ctx, Unreachable, fmt.Errorf("%w: %d peers failed to serve headers from %d", errUnreachable, len(peers), from))
		return
	}

	p, amount := peers[idx], min(s.Params.BatchSize, s.remoteHeight-from+1)
	log.Debugw("requesting range", "peer", p, "from", from, "amount", amount)

	s.inflight = true
	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, s.Params.RequestTimeout)
		defer cancel()

		headers, err := s.exchange.GetRangeByHeight(reqCtx, p, from, amount)
		select {
		case s.results <- rangeResult{peer: p, from: from, amount: amount, headers: headers, err: err}:
		case <-ctx.Done():
		}
	}()
}

// rangeReceived verifies and appends the headers of a range response one by one.
// The first invalid header discards the rest of the response.
func (s *Syncer) rangeReceived(ctx context.Context, res rangeResult) {
	if ctx.Err() != nil {
		return
	}

	// lacking is set when the peer answered, but has none of the requested headers
	var progressed, failed, lacking bool
	switch {
	case res.err == nil:
		lacking = len(res.headers) == 0
	case errors.Is(res.err, header.ErrNotFound):
		lacking = true
	default:
		log.Warnw("requesting range", "peer", res.peer, "from", res.from, "amount", res.amount, "err", res.err)
		s.discovery.Penalize(res.peer, unreachablePenalty)
		failed = true
	}
	if lacking {
		log.Debugw("peer has no headers for range", "peer", res.peer, "from", res.from)
	}

	for _, h := range res.headers {
		height := s.height()
		if h.Height() <= height {
			// delivered over gossip in the meantime
			continue
		}
		if h.Height() != height+1 {
			s.reject(ctx, h, res.peer, exchangeSource, &header.VerifyError{
				Reason: fmt.Errorf("%w: expected %d, but got %d", header.ErrHeightMismatch, height+1, h.Height()),
			})
			failed = true
			break
		}
		if !s.apply(ctx, h, res.peer, exchangeSource) {
			failed = true
			break
		}
		progressed = true
	}
	if s.State().State == Stalled {
		return
	}

	if progressed && !failed {
		s.discovery.Reward(res.peer)
	}

	if failed || lacking {
		// the rest of the range is retried at another peer
		next := s.height() + 1
		if next != s.triedFrom {
			clear(s.tried)
			s.triedFrom = next
		}
		s.tried[res.peer] = lacking && !failed
	}

	s.requestNext(ctx)
}

// anyLacking reports whether any of the tried peers answered without having the range.
func (s *Syncer) anyLacking() bool {
	for _, lacked := range s.tried {
		if lacked {
			return true
		}
	}
	return false
}

// dropUnconfirmed handles a network head nobody serves the headers up to. The head is known
// only from gossip or a single peer, so it is dropped together with every pending header above
// the local chain and their announcers are penalized. The network head is then learned anew.
func (s *Syncer) dropUnconfirmed(ctx context.Context, from uint64) {
	log.Warnw("dropping unconfirmed network head",
		"from", from,
		"remote_height", s.remoteHeight,
		"err", errUnconfirmed,
	)

	height := s.height()
	for _, key := range s.pending.Keys() {
		ph, ok := s.pending.Peek(key)
		if !ok || key <= height {
			continue
		}
		s.pending.Remove(key)
		s.metrics.observeRejected(ctx, gossipSource, errUnconfirmed)
		if ph.from != "" {
			s.discovery.Penalize(ph.from, unconfirmedPenalty)
		}
	}

	clear(s.tried)
	s.remoteHeight = height
	s.publishProgress()
	s.bootstrap(ctx)
}

// incomingHeader handles a header announced over gossip.
func (s *Syncer) incomingHeader(ctx context.Context, msg gossipMsg) {
	h, height := msg.header, s.height()
	switch {
	case h.Height() <= height:
		s.knownHeight(ctx, msg)
	case h.Height() == height+1:
		if !s.apply(ctx, h, msg.from, gossipSource) {
			return
		}
		s.applyPending(ctx)
		if s.State().State == Backfilling {
			s.requestNext(ctx)
		}
	default:
		err := h.Validate()
		if err == nil && s.head != nil && h.ChainID() != s.head.ChainID() {
			err = &header.VerifyError{
				Reason: fmt.Errorf("%w: expected %s, but got %s", header.ErrChainIDMismatch, s.head.ChainID(), h.ChainID()),
			}
		}
		if err != nil {
			s.reject(ctx, h, msg.from, gossipSource, err)
			return
		}

		// the height is a hint until peers serve the headers up to it

		s.pending.Add(h.Height(), pendingHeader{header: h, from: msg.from})
		if h.Height() > s.remoteHeight {
			s.remoteHeight = h.Height()
			s.publishProgress()
		}
		if s.State().State == Following {
			log.Infow("gap in gossip, backfilling", "height", height, "received", h.Height(), "peer", msg.from)
			s.requestNext(ctx)
		}
	}
}

// knownHeight handles a gossiped header at a height the local chain already has.
// The first valid header appended at a height wins, so a different one is only reported.
func (s *Syncer) knownHeight(ctx context.Context, msg gossipMsg) {
	h := msg.header
	if err := h.Validate(); err != nil {
		s.reject(ctx, h, msg.from, gossipSource, err)
		return
	}

	err := s.store.Append(ctx, h)
	switch {
	case err == nil, errors.Is(err, store.ErrDuplicate):
		log.Debugw("duplicate header", "height", h.Height(), "peer", msg.from)
	case errors.Is(err, store.ErrConflict):
		log.Warnw("conflicting header, possible equivocation",
			"height", h.Height(),
			"hash", h.Hash(),
			"peer", msg.from,
		)
		s.metrics.observeRejected(ctx, gossipSource, err)
	default:
		log.Errorw("checking known header", "height", h.Height(), "err", err)
	}
}
