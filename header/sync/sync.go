package sync

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/backoff"

	"github.com/celestiaorg/celestia-light/header"
)

var log = logging.Logger("header/sync")

// penalties given to peers for the different kinds of misbehaviour
const (
	invalidPenalty     = 1.0
	unconfirmedPenalty = 0.5
	unreachablePenalty = 0.25
)

// Syncer keeps the local header store in sync with the network.
//
// It is a state machine driven by a single event loop (s.loop):
//  1. Bootstrapping waits for routable peers and learns the network head from them.
//  2. Backfilling requests ranges of headers up to the network head, one peer at a time,
//     verifying each against its predecessor before appending it to the store.
//  3. Following appends headers announced over gossip. An announcement ahead of
//     the head sends the Syncer back to Backfilling to close the gap. If no peer has
//     the headers towards it, the announcement is dropped and the network head is learned anew.
//  4. Stalled is terminal and is entered on errors the Syncer cannot recover from.
//
// Everything but the loop accesses the Syncer's progress through State.
type Syncer struct {
	store     Store
	exchange  Exchange
	discovery Discovery
	sub       header.Subscriber

	Params *Parameters

	metrics *metrics

	// statusLk protects status and changed
	statusLk sync.RWMutex
	status   Status
	// changed is closed and replaced on every transition
	changed chan struct{}

	// everything below is owned by the loop
	//
	// head of the local chain, nil until the first header
	head *header.ExtendedHeader
	// remoteHeight is the highest head known to exist in the network
	remoteHeight uint64
	// pending keeps headers received over gossip ahead of the head
	pending *lru.Cache[uint64, pendingHeader]
	// tried keeps peers that failed to serve the range starting at triedFrom,
	// mapped to whether they answered without having it
	tried     map[peer.ID]bool
	triedFrom uint64
	// inflight is set while a bootstrap or range request is running
	inflight bool
	// retry fires when the next bootstrap attempt is due
	retry   <-chan time.Time
	backoff backoff.BackoffStrategy

	gossip  chan gossipMsg
	results chan any

	cancel context.CancelFunc
	done   chan struct{}
}

type pendingHeader struct {
	header *header.ExtendedHeader
	from   peer.ID
}

type gossipMsg struct {
	header *header.ExtendedHeader
	from   peer.ID
}

// NewSyncer creates a new instance of Syncer.
func NewSyncer(
	store Store,
	exchange Exchange,
	discovery Discovery,
	sub header.Subscriber,
	opts ...Option,
) (*Syncer, error) {
	params := DefaultParameters()
	for _, opt := range opts {
		opt(&params)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("header/sync: invalid parameters: %w", err)
	}

	pending, err := lru.New[uint64, pendingHeader](params.PendingSize)
	if err != nil {
		return nil, err
	}

	bf := backoff.NewExponentialBackoff(
		params.DiscoveryInterval,
		params.MaxBootstrapBackoff,
		backoff.FullJitter,
		time.Second,
		2.0,
		0,
		rand.NewSource(params.Clock.Now().UnixNano()),
	)

	return &Syncer{
		store:     store,
		exchange:  exchange,
		discovery: discovery,
		sub:       sub,
		Params:    &params,
		status: Status{
			State: Bootstrapping,
			Since: params.Clock.Now(),
		},
		changed: make(chan struct{}),
		pending: pending,
		tried:   make(map[peer.ID]bool),
		backoff: bf(),
		gossip:  make(chan gossipMsg, 16),
		results: make(chan any, 1),
		done:    make(chan struct{}),
	}, nil
}

// Start loads the local head and starts syncing in the background.
// It fails if the local chain is empty and there is no way to verify its first header.
func (s *Syncer) Start(context.Context) error {
	// load the head with a fresh context, as the store is expected to be started already
	head, err := s.store.Head(context.Background())
	switch {
	case err == nil:
		s.head = head
	case errors.Is(err, header.ErrNoHead):
		if len(s.Params.Genesis) == 0 && !s.Params.TrustUnanchoredGenesis {
			s.stall(context.Background(), Unverifiable, header.ErrUnverifiable)
			close(s.done)
			return fmt.Errorf("header/sync: empty store and no genesis hash: %w", header.ErrUnverifiable)
		}
	default:
		return fmt.Errorf("header/sync: loading head: %w", err)
	}

	sub, err := s.sub.Subscribe()
	if err != nil {
		return err
	}

	s.publishProgress()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.readGossip(ctx, sub)
	go s.loop(ctx)
	return nil
}

// Stop stops the Syncer and waits for the loop to exit.
func (s *Syncer) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.metrics.close()
}

// State reports the current progress of the Syncer.
func (s *Syncer) State() Status {
	s.statusLk.RLock()
	defer s.statusLk.RUnlock()
	return s.status
}

// SyncWait blocks until the Syncer catches up with the network head and follows it.
// It returns ErrStalled if the Syncer stalls instead.
func (s *Syncer) SyncWait(ctx context.Context) error {
	for {
		s.statusLk.RLock()
		st, changed := s.status, s.changed
		s.statusLk.RUnlock()

		switch {
		case st.State == Stalled:
			return fmt.Errorf("%w: %s: %w", ErrStalled, st.Reason, st.Err)
		case st.Synced():
			return nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// loop is the only place the state of the Syncer is changed.
func (s *Syncer) loop(ctx context.Context) {
	defer close(s.done)

	ticker := s.Params.Clock.Ticker(s.Params.DiscoveryInterval)
	defer ticker.Stop()
	report := s.Params.Clock.Ticker(s.Params.ReportInterval)
	defer report.Stop()

	s.bootstrap(ctx)
	for s.State().State != Stalled {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.gossip:
			s.incomingHeader(ctx, msg)
		case res := <-s.results:
			s.inflight = false
			switch res := res.(type) {
			case bootstrapResult:
				s.bootstrapped(ctx, res)
			case rangeResult:
				s.rangeReceived(ctx, res)
			}
		case <-s.retry:
			s.retry = nil
			s.bootstrap(ctx)
		case <-ticker.C:
			if s.State().State == Backfilling && !s.inflight {
				s.requestNext(ctx)
			}
		case <-report.C:
			st := s.State()
			log.Infow("sync status",
				"state", st.State,
				"height", st.Height,
				"remote_height", st.RemoteHeight,
				"since", st.Since,
			)
		}
	}
}

// readGossip pumps announced headers into the loop.
func (s *Syncer) readGossip(ctx context.Context, sub header.Subscription) {
	defer sub.Cancel()
	for {
		h, from, err := sub.NextHeader(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Errorw("reading gossip", "err", err)
			}
			return
		}

		select {
		case s.gossip <- gossipMsg{header: h, from: from}:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

// verify checks the given header is the valid successor of the local head.
func (s *Syncer) verify(h *header.ExtendedHeader) error {
	if s.head != nil {
		return s.head.Verify(h)
	}

	err := header.VerifyGenesis(h, s.Params.Genesis)
	if errors.Is(err, header.ErrUnverifiable) && s.Params.TrustUnanchoredGenesis {
		log.Warnw("trusting unanchored genesis", "hash", h.Hash())
		return nil
	}
	return err
}

// apply verifies the given header against the local head and appends it.
// It returns false if the header was not appended.
func (s *Syncer) apply(ctx context.Context, h *header.ExtendedHeader, from peer.ID, source string) bool {
	if err := s.verify(h); err != nil {
		s.reject(ctx, h, from, source, err)
		return false
	}

	err := s.store.Append(ctx, h)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		// the loop is the single writer and just verified linkage to the head,
		// so the store failing here is beyond recovery
		log.Errorw("appending verified header", "height", h.Height(), "hash", h.Hash(), "err", err)
		s.stall(ctx, StoreFailure, err)
		return false
	}

	s.head = h
	s.pending.Remove(h.Height())
	if h.Height() > s.remoteHeight {
		s.remoteHeight = h.Height()
	}
	s.publishProgress()
	s.metrics.observeAppended(ctx, source)
	return true
}

// applyPending appends cached gossip headers that continue the local chain.
func (s *Syncer) applyPending(ctx context.Context) {
	for {
		ph, ok := s.pending.Get(s.height() + 1)
		if !ok {
			return
		}
		if !s.apply(ctx, ph.header, ph.from, gossipSource) {
			s.pending.Remove(ph.header.Height())
			return
		}
	}
}

// reject logs the header and penalizes the peer that sent it.
func (s *Syncer) reject(ctx context.Context, h *header.ExtendedHeader, from peer.ID, source string, err error) {
	if errors.Is(err, header.ErrUnverifiable) {
		s.stall(ctx, Unverifiable, err)
		return
	}

	log.Warnw("rejected invalid header",
		"source", source,
		"peer", from,
		"height", h.Height(),
		"hash", h.Hash(),
		"err", err,
	)
	s.metrics.observeRejected(ctx, source, err)
	if from != "" {
		s.discovery.Penalize(from, invalidPenalty)
	}
}

func (s *Syncer) height() uint64 {
	if s.head == nil {
		return 0
	}
	return s.head.Height()
}

func (s *Syncer) transition(ctx context.Context, to State) {
	s.statusLk.Lock()
	if s.status.State == to || s.status.State == Stalled {
		s.statusLk.Unlock()
		return
	}
	from := s.status.State
	s.status.State = to
	s.status.Since = s.Params.Clock.Now()
	s.status.RemoteHeight = s.remoteHeight
	close(s.changed)
	s.changed = make(chan struct{})
	s.statusLk.Unlock()

	log.Infow("sync state changed", "from", from, "to", to, "height", s.height(), "remote_height", s.remoteHeight)
	s.metrics.observeTransition(ctx, to, NotStalled)
}

func (s *Syncer) stall(ctx context.Context, reason StallReason, err error) {
	s.statusLk.Lock()
	if s.status.State == Stalled {
		s.statusLk.Unlock()
		return
	}
	s.status.State = Stalled
	s.status.Reason = reason
	s.status.Err = err
	s.status.Since = s.Params.Clock.Now()
	close(s.changed)
	s.changed = make(chan struct{})
	s.statusLk.Unlock()

	log.Errorw("syncer stalled", "reason", reason, "height", s.height(), "err", err)
	s.metrics.observeTransition(ctx, Stalled, reason)
}

// publishProgress exposes the heights known to the loop through State.
func (s *Syncer) publishProgress() {
	s.statusLk.Lock()
	s.status.Height = s.height()
	s.status.RemoteHeight = s.remoteHeight
	close(s.changed)
	s.changed = make(chan struct{})
	s.statusLk.Unlock()
}

const (
	gossipSource   = "gossip"
	exchangeSource = "exchange"
)

func rejectReason(err error) string {
	for _, reason := range []error{
		header.ErrHeightMismatch,
		header.ErrChainIDMismatch,
		header.ErrNonMonotonicTime,
		header.ErrLastHeaderHashMismatch,
		header.ErrValidatorHashMismatch,
		header.ErrValidatorSetMismatch,
		header.ErrGenesisMismatch,
		header.ErrInsufficientVotingPower,
		header.ErrInvalidDAH,
		header.ErrDataRootMismatch,
	} {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}
	return "invalid"
}
