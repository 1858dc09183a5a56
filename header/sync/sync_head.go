package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/celestiaorg/celestia-light/discovery"
	"github.com/celestiaorg/celestia-light/header"
)

var (
	errNotEnoughPeers = errors.New("not enough peers")
	errNoHeads        = errors.New("no peer served a valid head")
)

type bootstrapResult struct {
	head peerHead
	err  error
}

// peerHead is a head along with the peer that served it.
type peerHead struct {
	header *header.ExtendedHeader
	from   peer.ID
}

// bootstrap starts learning the network head in the background.
// The result is delivered to the loop as bootstrapResult.
func (s *Syncer) bootstrap(ctx context.Context) {
	if s.inflight {
		return
	}
	s.inflight = true
	s.transition(ctx, Bootstrapping)

	go func() {
		head, err := s.requestHead(ctx)
		select {
		case s.results <- bootstrapResult{head: head, err: err}:
		case <-ctx.Done():
		}
	}()
}

// bootstrapped handles the outcome of bootstrap.
func (s *Syncer) bootstrapped(ctx context.Context, res bootstrapResult) {
	switch {
	case res.err == nil:
	case errors.Is(res.err, discovery.ErrNoBootnodes):
		s.stall(ctx, NoPeers, res.err)
		return
	case ctx.Err() != nil:
		return
	default:
		delay := s.backoff.Delay()
		log.Warnw("bootstrap failed, retrying", "err", res.err, "retry_in", delay)
		s.retry = s.Params.Clock.After(delay)
		return
	}

	s.backoff.Reset()
	head := res.head.header
	if head.Height() > s.remoteHeight {
		s.remoteHeight = head.Height()
		// the network head is only self-validated, so it waits for its turn like any gossiped header
		s.pending.Add(head.Height(), pendingHeader{header: head, from: res.head.from})
	}
	s.publishProgress()
	log.Infow("learned network head", "height", s.remoteHeight, "local_height", s.height())

	s.requestNext(ctx)
}

// requestHead waits for enough routable peers and asks them for their heads.
// It returns the best head among the ones received.
func (s *Syncer) requestHead(ctx context.Context) (peerHead, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Params.BootstrapTimeout)
	defer cancel()

	peers, err := s.awaitPeers(ctx)
	if err != nil {
		return peerHead{}, err
	}
	if len(peers) > s.Params.MaxHeadRequests {
		peers = peers[:s.Params.MaxHeadRequests]
	}

	heads := make([]peerHead, len(peers))
	var errg errgroup.Group
	for i, p := range peers {
		errg.Go(func() error {
			reqCtx, cancel := context.WithTimeout(ctx, s.Params.RequestTimeout)
			defer cancel()

			h, err := s.exchange.Head(reqCtx, p)
			if err != nil {
				log.Debugw("requesting head", "peer", p, "err", err)
				s.discovery.Penalize(p, unreachablePenalty)
				return nil
			}
			if err := h.Validate(); err != nil {
				log.Warnw("peer served invalid head", "peer", p, "height", h.Height(), "err", err)
				s.metrics.observeRejected(ctx, exchangeSource, err)
				s.discovery.Penalize(p, invalidPenalty)
				return nil
			}
			heads[i] = peerHead{header: h, from: p}
			return nil
		})
	}
	_ = errg.Wait()

	heads = slices.DeleteFunc(heads, func(h peerHead) bool { return h.header == nil })
	if len(heads) == 0 {
		return peerHead{}, fmt.Errorf("%w out of %d", errNoHeads, len(peers))
	}
	return bestHead(heads, s.Params.MinResponses), nil
}

// awaitPeers polls discovery until it reports at least MinPeers peers.
func (s *Syncer) awaitPeers(ctx context.Context) ([]peer.ID, error) {
	ticker := s.Params.Clock.Ticker(s.Params.DiscoveryInterval)
	defer ticker.Stop()

	var peers []peer.ID
	for {
		var err error
		peers, err = s.discovery.Peers(ctx)
		switch {
		case errors.Is(err, discovery.ErrNoBootnodes):
			return nil, err
		case err != nil:
			log.Debugw("listing peers", "err", err)
		case len(peers) >= s.Params.MinPeers:
			return peers, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: have %d, want %d: %w", errNotEnoughPeers, len(peers), s.Params.MinPeers, ctx.Err())
		}
	}
}

// bestHead picks the highest head reported by at least minResponses peers.
// If there is no such head, the highest one is returned. Such a head is only a hint
// and gets dropped if no peer serves the headers up to it.
func bestHead(heads []peerHead, minResponses int) peerHead {
	counter := make(map[string]int, len(heads))
	for _, h := range heads {
		counter[h.header.Hash().String()]++
	}

	slices.SortFunc(heads, func(a, b peerHead) int {
		switch {
		case a.header.Height() > b.header.Height():
			return -1
		case a.header.Height() < b.header.Height():
			return 1
		default:
			return 0
		}
	})

	for _, h := range heads {
		if counter[h.header.Hash().String()] >= minResponses {
			return h
		}
	}
	log.Debugw("no head reported by enough peers, taking the highest one",
		"min_responses", minResponses, "height", heads[0].header.Height(), "peer", heads[0].from)
	return heads[0]
}
