package sync

import (
	"context"
	"errors"
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/celestiaorg/celestia-light/header"
)

var errUnavailable = errors.New("unavailable")

// chainServer serves a fixed chain of headers, the way a remote peer would.
type chainServer struct {
	lk      sync.Mutex
	headers []*header.ExtendedHeader
	// ranges fail while set
	failRanges bool
	// gate blocks range requests until a value is received
	gate chan struct{}
}

func (c *chainServer) setHeaders(headers []*header.ExtendedHeader) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.headers = headers
}

type testExchange struct {
	peers map[peer.ID]*chainServer
}

func newTestExchange() *testExchange {
	return &testExchange{peers: make(map[peer.ID]*chainServer)}
}

func (ex *testExchange) serve(p peer.ID, headers []*header.ExtendedHeader) *chainServer {
	srv := &chainServer{headers: headers}
	ex.peers[p] = srv
	return srv
}

func (ex *testExchange) Head(_ context.Context, from peer.ID) (*header.ExtendedHeader, error) {
	srv, ok := ex.peers[from]
	if !ok {
		return nil, errUnavailable
	}
	srv.lk.Lock()
	defer srv.lk.Unlock()
	if len(srv.headers) == 0 {
		return nil, header.ErrNotFound
	}
	return srv.headers[len(srv.headers)-1], nil
}

func (ex *testExchange) GetRangeByHeight(
	ctx context.Context,
	from peer.ID,
	height, amount uint64,
) ([]*header.ExtendedHeader, error) {
	srv, ok := ex.peers[from]
	if !ok {
		return nil, errUnavailable
	}

	srv.lk.Lock()
	gate := srv.gate
	srv.lk.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	srv.lk.Lock()
	defer srv.lk.Unlock()
	if srv.failRanges {
		return nil, errUnavailable
	}

	var out []*header.ExtendedHeader
	for _, h := range srv.headers {
		if h.Height() >= height && h.Height() < height+amount {
			out = append(out, h)
		}
	}
	return out, nil
}

type testDiscovery struct {
	lk        sync.Mutex
	peers     []peer.ID
	err       error
	penalties map[peer.ID]float64
	rewards   map[peer.ID]int
}

func newTestDiscovery(peers ...peer.ID) *testDiscovery {
	return &testDiscovery{
		peers:     peers,
		penalties: make(map[peer.ID]float64),
		rewards:   make(map[peer.ID]int),
	}
}

func (d *testDiscovery) Peers(context.Context) ([]peer.ID, error) {
	d.lk.Lock()
	defer d.lk.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return append([]peer.ID(nil), d.peers...), nil
}

func (d *testDiscovery) Penalize(p peer.ID, weight float64) {
	d.lk.Lock()
	defer d.lk.Unlock()
	d.penalties[p] += weight
}

func (d *testDiscovery) Reward(p peer.ID) {
	d.lk.Lock()
	defer d.lk.Unlock()
	d.rewards[p]++
}

func (d *testDiscovery) penalty(p peer.ID) float64 {
	d.lk.Lock()
	defer d.lk.Unlock()
	return d.penalties[p]
}

func (d *testDiscovery) rewarded(p peer.ID) int {
	d.lk.Lock()
	defer d.lk.Unlock()
	return d.rewards[p]
}

type gossipHeader struct {
	header *header.ExtendedHeader
	from   peer.ID
}

// testSubscriber delivers whatever is sent to it to its only subscription.
type testSubscriber struct {
	msgs chan gossipHeader
}

func newTestSubscriber() *testSubscriber {
	return &testSubscriber{msgs: make(chan gossipHeader, 8)}
}

func (s *testSubscriber) publish(h *header.ExtendedHeader, from peer.ID) {
	s.msgs <- gossipHeader{header: h, from: from}
}

func (s *testSubscriber) Subscribe() (header.Subscription, error) {
	return s, nil
}

func (s *testSubscriber) NextHeader(ctx context.Context) (*header.ExtendedHeader, peer.ID, error) {
	select {
	case msg := <-s.msgs:
		return msg.header, msg.from, nil
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
}

func (s *testSubscriber) Cancel() {}
