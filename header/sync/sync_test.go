package sync

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/ipfs/go-datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-light/discovery"
	"github.com/celestiaorg/celestia-light/header"
	"github.com/celestiaorg/celestia-light/header/headertest"
	"github.com/celestiaorg/celestia-light/header/store"
)

func TestSyncer_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t, headertest.WithValidators(4, 25))
	headers := suite.GenExtendedHeaders(10)

	ex := newTestExchange()
	ex.serve("bridge", headers)
	disc := newTestDiscovery("bridge")
	sub := newTestSubscriber()

	syncer, st := newTestSyncer(ctx, t, ex, disc, sub, WithGenesis(headers[0].Hash()))
	startSyncer(ctx, t, syncer)

	require.NoError(t, syncer.SyncWait(ctx))
	assert.EqualValues(t, 10, st.Height())
	for _, h := range headers {
		stored, err := st.GetByHeight(ctx, h.Height())
		require.NoError(t, err)
		assert.Equal(t, h.Hash(), stored.Hash())
	}

	h9, err := st.GetByHeight(ctx, 9)
	require.NoError(t, err)
	h10, err := st.GetByHeight(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, h9.Hash(), h10.LastHeader())

	// half of the voting power is not enough
	weak := suite.CandidateSignedBy(headertest.SignedByFirst(2))
	sub.publish(weak, "gossiper")
	require.Eventually(t, func() bool {
		return disc.penalty("gossiper") > 0
	}, time.Second, time.Millisecond*10)

	assert.EqualValues(t, 10, st.Height())
	status := syncer.State()
	assert.Equal(t, Following, status.State)
	assert.EqualValues(t, 10, status.Height)
	assert.EqualValues(t, 10, status.RemoteHeight)
}

func TestSyncer_GapInGossip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(7)

	ex := newTestExchange()
	srv := ex.serve("bridge", headers[:5])
	disc := newTestDiscovery("bridge")
	sub := newTestSubscriber()

	syncer, st := newTestSyncer(ctx, t, ex, disc, sub, WithGenesis(headers[0].Hash()))
	startSyncer(ctx, t, syncer)
	require.NoError(t, syncer.SyncWait(ctx))
	require.EqualValues(t, 5, st.Height())

	gate := make(chan struct{})
	srv.lk.Lock()
	srv.headers, srv.gate = headers, gate
	srv.lk.Unlock()

	sub.publish(headers[6], "gossiper")
	require.Eventually(t, func() bool {
		return syncer.State().State == Backfilling
	}, time.Second, time.Millisecond*10)

	// the header ahead waits for the gap to be closed
	assert.EqualValues(t, 5, st.Height())
	assert.EqualValues(t, 7, syncer.State().RemoteHeight)
	_, err := st.GetByHeight(ctx, 7)
	assert.ErrorIs(t, err, header.ErrNotFound)

	close(gate)
	require.NoError(t, syncer.SyncWait(ctx))
	require.EqualValues(t, 7, st.Height())

	h6, err := st.GetByHeight(ctx, 6)
	require.NoError(t, err)
	h7, err := st.GetByHeight(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, headers[6].Hash(), h7.Hash())
	assert.Equal(t, h6.Hash(), h7.LastHeader())
	assert.Zero(t, disc.penalty("gossiper"))
}

func TestSyncer_InvalidRangeRetriedAtAnotherPeer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(2)
	fork := suite.Fork()
	headers = append(headers, suite.GenExtendedHeaders(3)...)

	badChain := slices.Clone(headers)
	badChain[2] = fork.CandidateSignedBy(headertest.SignedByFirst(1))

	ex := newTestExchange()
	ex.serve("liar", badChain)
	ex.serve("honest", headers)
	disc := newTestDiscovery("liar", "honest")

	syncer, st := newTestSyncer(ctx, t, ex, disc, newTestSubscriber(), WithGenesis(headers[0].Hash()))
	startSyncer(ctx, t, syncer)
	require.NoError(t, syncer.SyncWait(ctx))

	require.EqualValues(t, 5, st.Height())
	h3, err := st.GetByHeight(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, headers[2].Hash(), h3.Hash())

	assert.Equal(t, invalidPenalty, disc.penalty("liar"))
	assert.Zero(t, disc.penalty("honest"))
	assert.Positive(t, disc.rewarded("honest"))
}

func TestSyncer_StallsWhenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(3)

	ex := newTestExchange()
	srv := ex.serve("flaky", headers)
	srv.failRanges = true
	disc := newTestDiscovery("flaky")

	syncer, st := newTestSyncer(ctx, t, ex, disc, newTestSubscriber(), WithGenesis(headers[0].Hash()))
	startSyncer(ctx, t, syncer)

	err := syncer.SyncWait(ctx)
	require.ErrorIs(t, err, ErrStalled)
	require.ErrorIs(t, err, errUnreachable)

	status := syncer.State()
	assert.Equal(t, Stalled, status.State)
	assert.Equal(t, Unreachable, status.Reason)
	assert.EqualValues(t, 0, st.Height())
	assert.Equal(t, unreachablePenalty, disc.penalty("flaky"))
}

// A self-signed header far ahead must not lead the Syncer into chasing a range nobody has.
func TestSyncer_DropsUnconfirmedHead(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(5)

	ex := newTestExchange()
	ex.serve("bridge", headers)
	ex.serve("light", headers)
	disc := newTestDiscovery("bridge", "light")
	sub := newTestSubscriber()

	syncer, st := newTestSyncer(ctx, t, ex, disc, sub, WithGenesis(headers[0].Hash()))
	startSyncer(ctx, t, syncer)
	require.NoError(t, syncer.SyncWait(ctx))
	require.EqualValues(t, 5, st.Height())

	forger := headertest.NewTestSuite(t)
	sub.publish(forger.HeaderAt(1000), "forger")
	require.Eventually(t, func() bool {
		return disc.penalty("forger") > 0
	}, time.Second*5, time.Millisecond*10)
	require.Eventually(t, func() bool {
		status := syncer.State()
		return status.State == Following && status.RemoteHeight == 5
	}, time.Second*5, time.Millisecond*10)

	// the chain goes on from the local head
	next := suite.NextHeader()
	sub.publish(next, "bridge")
	require.Eventually(t, func() bool {
		return st.Height() == 6
	}, time.Second*5, time.Millisecond*10)

	require.NoError(t, syncer.SyncWait(ctx))
	assert.Equal(t, unconfirmedPenalty, disc.penalty("forger"))
	assert.Zero(t, disc.penalty("bridge"))
	assert.Zero(t, disc.penalty("light"))
}

func TestSyncer_RejectsGossipFromAnotherChain(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(3)

	ex := newTestExchange()
	ex.serve("bridge", headers)
	disc := newTestDiscovery("bridge")
	sub := newTestSubscriber()

	syncer, st := newTestSyncer(ctx, t, ex, disc, sub, WithGenesis(headers[0].Hash()))
	startSyncer(ctx, t, syncer)
	require.NoError(t, syncer.SyncWait(ctx))

	other := headertest.NewTestSuite(t)
	dah := header.MinDataAvailabilityHeader()
	rh := other.GenRawHeader(100, headertest.RandBlockID(t).Hash, nil, dah.Hash())
	rh.ChainID = "other"
	foreign := &header.ExtendedHeader{
		RawHeader:    *rh,
		Commit:       other.Commit(rh),
		ValidatorSet: other.ValidatorSet(),
		DAH:          &dah,
	}
	require.NoError(t, foreign.Validate())

	sub.publish(foreign, "foreigner")
	require.Eventually(t, func() bool {
		return disc.penalty("foreigner") == invalidPenalty
	}, time.Second*5, time.Millisecond*10)

	status := syncer.State()
	assert.Equal(t, Following, status.State)
	assert.EqualValues(t, 3, status.RemoteHeight)
	assert.EqualValues(t, 3, st.Height())
}

func TestSyncer_StallsOnGenesisMismatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(3)

	ex := newTestExchange()
	ex.serve("bridge", headers)
	disc := newTestDiscovery("bridge")

	genesis := headertest.RandBlockID(t).Hash
	syncer, st := newTestSyncer(ctx, t, ex, disc, newTestSubscriber(), WithGenesis(genesis))
	startSyncer(ctx, t, syncer)

	err := syncer.SyncWait(ctx)
	require.ErrorIs(t, err, ErrStalled)
	assert.Equal(t, Unreachable, syncer.State().Reason)
	assert.EqualValues(t, 0, st.Height())
	assert.Equal(t, invalidPenalty, disc.penalty("bridge"))
}

func TestSyncer_StallsWithoutBootnodes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	disc := newTestDiscovery()
	disc.err = discovery.ErrNoBootnodes

	syncer, _ := newTestSyncer(ctx, t, newTestExchange(), disc, newTestSubscriber(),
		WithGenesis(headertest.RandBlockID(t).Hash))
	startSyncer(ctx, t, syncer)

	err := syncer.SyncWait(ctx)
	require.ErrorIs(t, err, ErrStalled)
	require.ErrorIs(t, err, discovery.ErrNoBootnodes)
	assert.Equal(t, NoPeers, syncer.State().Reason)
}

func TestSyncer_BootstrapWaitsForPeers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(3)

	ex := newTestExchange()
	ex.serve("late", headers)
	disc := newTestDiscovery()

	syncer, st := newTestSyncer(ctx, t, ex, disc, newTestSubscriber(), WithGenesis(headers[0].Hash()))
	startSyncer(ctx, t, syncer)

	time.Sleep(time.Millisecond * 50)
	assert.Equal(t, Bootstrapping, syncer.State().State)

	disc.lk.Lock()
	disc.peers = append(disc.peers, "late")
	disc.lk.Unlock()

	require.NoError(t, syncer.SyncWait(ctx))
	assert.EqualValues(t, 3, st.Height())
}

func TestSyncer_UnverifiableWithoutGenesis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	syncer, _ := newTestSyncer(ctx, t, newTestExchange(), newTestDiscovery(), newTestSubscriber())
	err := syncer.Start(ctx)
	require.ErrorIs(t, err, header.ErrUnverifiable)

	status := syncer.State()
	assert.Equal(t, Stalled, status.State)
	assert.Equal(t, Unverifiable, status.Reason)
	require.ErrorIs(t, syncer.SyncWait(ctx), ErrStalled)
	require.NoError(t, syncer.Stop(ctx))
}

func TestSyncer_TrustUnanchoredGenesis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(4)

	ex := newTestExchange()
	ex.serve("bridge", headers)

	syncer, st := newTestSyncer(ctx, t, ex, newTestDiscovery("bridge"), newTestSubscriber(),
		WithTrustUnanchoredGenesis(true))
	startSyncer(ctx, t, syncer)

	require.NoError(t, syncer.SyncWait(ctx))
	assert.EqualValues(t, 4, st.Height())
}

func TestSyncer_ResumesFromStoredHead(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(6)

	ex := newTestExchange()
	ex.serve("bridge", headers)

	// no genesis is needed with a non-empty store
	syncer, st := newTestSyncer(ctx, t, ex, newTestDiscovery("bridge"), newTestSubscriber())
	for _, h := range headers[:3] {
		require.NoError(t, st.Append(ctx, h))
	}
	startSyncer(ctx, t, syncer)

	require.NoError(t, syncer.SyncWait(ctx))
	assert.EqualValues(t, 6, st.Height())
}

func TestSyncer_KnownHeightsIgnored(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(2)
	fork := suite.Fork()
	headers = append(headers, suite.NextHeader())
	conflicting := fork.NextHeader()
	next := suite.NextHeader()

	ex := newTestExchange()
	ex.serve("bridge", headers)
	disc := newTestDiscovery("bridge")
	sub := newTestSubscriber()

	syncer, st := newTestSyncer(ctx, t, ex, disc, sub, WithGenesis(headers[0].Hash()))
	startSyncer(ctx, t, syncer)
	require.NoError(t, syncer.SyncWait(ctx))
	require.EqualValues(t, 3, st.Height())

	sub.publish(headers[1], "duplicate")
	sub.publish(conflicting, "equivocator")
	sub.publish(next, "gossiper")
	require.Eventually(t, func() bool {
		return st.Height() == 4
	}, time.Second, time.Millisecond*10)

	h3, err := st.GetByHeight(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, headers[2].Hash(), h3.Hash())
	assert.Zero(t, disc.penalty("duplicate"))
	assert.Zero(t, disc.penalty("equivocator"))
	assert.Equal(t, Following, syncer.State().State)
}

func TestBestHead(t *testing.T) {
	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(2)
	fork := suite.Fork()
	h3 := suite.NextHeader()
	h3Fork := fork.NextHeader()

	best := bestHead([]peerHead{
		{header: h3, from: "a"},
		{header: h3Fork, from: "b"},
		{header: headers[1], from: "c"},
		{header: headers[1], from: "d"},
	}, 2)
	assert.Equal(t, headers[1].Hash(), best.header.Hash())

	best = bestHead([]peerHead{
		{header: headers[0], from: "a"},
		{header: h3, from: "b"},
		{header: headers[1], from: "c"},
	}, 2)
	assert.Equal(t, h3.Hash(), best.header.Hash())
	assert.EqualValues(t, "b", best.from)
}

func TestParameters_Validate(t *testing.T) {
	params := DefaultParameters()
	require.NoError(t, params.Validate())

	for _, opt := range []Option{
		WithBatchSize(0),
		WithRequestTimeout(0),
		WithMinPeers(0),
		WithMinResponses(100),
		WithPendingSize(0),
		WithReportInterval(0),
		WithClock(nil),
	} {
		params := DefaultParameters()
		opt(&params)
		assert.Error(t, params.Validate())
	}
}

func newTestSyncer(
	ctx context.Context,
	t *testing.T,
	ex Exchange,
	disc Discovery,
	sub header.Subscriber,
	opts ...Option,
) (*Syncer, *store.Store) {
	st := store.NewTestStore(ctx, t, datastore.NewMapDatastore())

	opts = append([]Option{
		WithDiscoveryInterval(time.Millisecond * 10),
		WithRequestTimeout(time.Second),
		WithBootstrapTimeout(time.Second),
		WithMinResponses(1),
	}, opts...)
	syncer, err := NewSyncer(st, ex, disc, sub, opts...)
	require.NoError(t, err)
	return syncer, st
}

func startSyncer(ctx context.Context, t *testing.T, syncer *Syncer) {
	require.NoError(t, syncer.Start(ctx))
	t.Cleanup(func() {
		_ = syncer.Stop(context.Background())
	})
}
