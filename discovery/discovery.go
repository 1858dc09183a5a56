package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/discovery"
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/routing"
	"github.com/libp2p/go-libp2p/p2p/host/eventbus"
	"github.com/libp2p/go-libp2p/p2p/net/conngater"
	"golang.org/x/sync/errgroup"
)

var log = logging.Logger("discovery")

// ErrNoBootnodes is returned when a network that requires bootnodes has none configured.
// It is permanent, as Discovery has nowhere to start from.
var ErrNoBootnodes = errors.New("discovery: no bootnodes configured")

const (
	// eventbusBufSize is the size of the buffered channel to handle
	// events in libp2p. We specify a larger buffer size for the channel
	// to avoid overflowing and blocking subscription during disconnection bursts.
	// (by default it is 16)
	eventbusBufSize = 64

	// findPeersTimeout limits the FindPeers operation in time
	findPeersTimeout = time.Minute

	// retryTimeout defines time interval between advertise attempts.
	retryTimeout = time.Second

	// disconnectScore is the score at which a peer gets disconnected and backed off
	disconnectScore = -5.0
)

// Discovery keeps the node connected to peers of its network. It starts from the
// bootnodes, maintains the Kademlia routing table and finds peers serving headers
// through the rendezvous Tag. Connected peers are ranked by the quality of the data
// they served, as reported through Penalize and Reward.
type Discovery struct {
	host      host.Host
	dht       *dht.IpfsDHT
	disc      discovery.Discovery
	bootnodes []peer.AddrInfo
	// gater may be nil, then misbehaving peers are only disconnected
	gater     *conngater.BasicConnectionGater

	connector *backoffConnector
	tracker   *peerTracker

	metrics *metrics
	params  *Parameters

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDiscovery constructs a new discovery over the given DHT.
// Misbehaving peers are blocked through the gater, if one is given.
func NewDiscovery(
	h host.Host,
	d *dht.IpfsDHT,
	gater *conngater.BasicConnectionGater,
	bootnodes []peer.AddrInfo,
	opts ...Option,
) (*Discovery, error) {
	params := DefaultParameters()
	for _, opt := range opts {
		opt(params)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Discovery{
		host:      h,
		dht:       d,
		disc:      routing.NewRoutingDiscovery(d),
		bootnodes: bootnodes,
		gater:     gater,
		connector: newBackoffConnector(h, defaultBackoffFactory),
		tracker:   newPeerTracker(),
		params:    params,
	}, nil
}

// Start connects to the bootnodes, bootstraps the routing table and keeps discovering peers
// in the background.
func (d *Discovery) Start(ctx context.Context) error {
	if d.params.RequireBootnodes && len(d.bootnodes) == 0 {
		return ErrNoBootnodes
	}

	sub, err := d.host.EventBus().Subscribe(&event.EvtPeerConnectednessChanged{}, eventbus.BufSize(eventbusBufSize))
	if err != nil {
		return fmt.Errorf("subscribing for connection events: %w", err)
	}

	if connected := d.connectBootnodes(ctx); connected == 0 && len(d.bootnodes) > 0 {
		log.Warnw("could not connect to any bootnode, will retry", "bootnodes", len(d.bootnodes))
	}

	if err := d.dht.Bootstrap(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("bootstrapping dht: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(3)
	go func() {
		defer d.wg.Done()
		d.discoveryLoop(ctx)
	}()
	go func() {
		defer d.wg.Done()
		d.connectionsLoop(ctx, sub)
	}()
	go func() {
		defer d.wg.Done()
		d.connector.GC(ctx)
	}()

	if d.params.AdvertiseInterval > 0 {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.Advertise(ctx)
		}()
	}
	return nil
}

// Stop stops all the background routines.
func (d *Discovery) Stop(context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	return d.metrics.close()
}

// Peers lists connected peers, best ranked first. Misbehaving peers are left out.
func (d *Discovery) Peers(context.Context) ([]peer.ID, error) {
	if d.params.RequireBootnodes && len(d.bootnodes) == 0 {
		return nil, ErrNoBootnodes
	}

	connected := d.host.Network().Peers()
	peers := make([]peer.ID, 0, len(connected))
	for _, p := range connected {
		if p != d.host.ID() && !d.misbehaving(p) {
			peers = append(peers, p)
		}
	}
	return d.tracker.rank(peers), nil
}

// Penalize lowers the rank of the peer by the given weight.
// A peer whose score falls low enough is blocked, dropped from the routing table
// and disconnected.
func (d *Discovery) Penalize(id peer.ID, weight float64) {
	score := d.tracker.penalize(id, weight)
	d.metrics.observePenalty(context.Background(), weight)
	if score > disconnectScore {
		return
	}

	log.Infow("blocking misbehaving peer", "peer", id, "score", score)
	if d.gater != nil {
		if err := d.gater.BlockPeer(id); err != nil {
			log.Warnw("blocking peer", "peer", id, "err", err)
		}
	}
	d.dht.RoutingTable().RemovePeer(id)
	d.host.ConnManager().Unprotect(id, d.params.Tag)
	d.connector.Backoff(id)
	d.closePeer(id)
}

func (d *Discovery) misbehaving(id peer.ID) bool {
	return d.tracker.score(id) <= disconnectScore
}

func (d *Discovery) closePeer(id peer.ID) {
	if err := d.host.Network().ClosePeer(id); err != nil {
		log.Debugw("closing peer", "peer", id, "err", err)
	}
}

// Reward raises the rank of the peer.
func (d *Discovery) Reward(id peer.ID) {
	d.tracker.reward(id)
}

// Advertise is a utility function that persistently advertises a service through an Advertiser.
func (d *Discovery) Advertise(ctx context.Context) {
	timer := time.NewTimer(d.params.AdvertiseInterval)
	defer timer.Stop()
	for {
		ttl, err := d.disc.Advertise(ctx, d.params.Tag)
		d.metrics.observeAdvertise(ctx, err)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnw("error advertising", "rendezvous", d.params.Tag, "err", err)

			// we don't want retry indefinitely in busy loop
			// internal discovery mechanism may need some time before attempts
			select {
			case <-time.After(retryTimeout):
				continue
			case <-ctx.Done():
				return
			}
		}

		log.Debugw("advertised", "rendezvous", d.params.Tag, "ttl", ttl)
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d.params.AdvertiseInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}
}

// discoveryLoop ensures we always have '~PeersLimit' connected peers.
func (d *Discovery) discoveryLoop(ctx context.Context) {
	t := time.NewTicker(d.params.DiscoveryInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			d.discover(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// discover refreshes the routing table and dials more peers if the node lacks them.
func (d *Discovery) discover(ctx context.Context) {
	size := len(d.host.Network().Peers())
	want := int(d.params.PeersLimit) - size //nolint:gosec
	if want <= 0 {
		log.Debugw("reached soft peer limit, skipping discovery", "size", size)
		return
	}
	log.Debugw("discovering peers", "want", want)

	d.connectBootnodes(ctx)

	select {
	case err := <-d.dht.RefreshRoutingTable():
		if err != nil && ctx.Err() == nil {
			log.Debugw("refreshing routing table", "err", err)
		}
	case <-ctx.Done():
		return
	}

	for _, p := range d.dht.RoutingTable().ListPeers() {
		d.handleDiscoveredPeer(ctx, d.host.Peerstore().PeerInfo(p))
	}
	d.findPeers(ctx)

	enough := len(d.host.Network().Peers()) >= int(d.params.PeersLimit) //nolint:gosec
	d.metrics.observeFindPeers(ctx, enough)
	log.Debugw("discovery finished", "discovered_wanted", enough)
}

// findPeers dials the peers advertising themselves under the Tag.
func (d *Discovery) findPeers(ctx context.Context) {
	findCtx, findCancel := context.WithTimeout(ctx, findPeersTimeout)
	defer findCancel()

	peers, err := d.disc.FindPeers(findCtx, d.params.Tag)
	if err != nil {
		log.Debugw("unable to start discovery", "rendezvous", d.params.Tag, "err", err)
		return
	}

	for p := range peers {
		if len(d.host.Network().Peers()) >= int(d.params.PeersLimit) { //nolint:gosec
			return
		}
		d.handleDiscoveredPeer(ctx, p)
	}
}

// connectBootnodes dials all the bootnodes in parallel and reports how many are connected.
func (d *Discovery) connectBootnodes(ctx context.Context) int {
	var (
		errg      errgroup.Group
		connected = make([]bool, len(d.bootnodes))
	)
	for i, bn := range d.bootnodes {
		errg.Go(func() error {
			if d.host.Network().Connectedness(bn.ID) == network.Connected {
				connected[i] = true
				return nil
			}

			err := d.connector.Connect(ctx, bn)
			d.metrics.observeBootnode(ctx, err)
			if err != nil {
				log.Debugw("connecting to bootnode", "peer", bn.ID, "err", err)
				return nil
			}
			d.host.ConnManager().Protect(bn.ID, d.params.Tag)
			connected[i] = true
			return nil
		})
	}
	_ = errg.Wait()

	var count int
	for _, ok := range connected {
		if ok {
			count++
		}
	}
	return count
}

// handleDiscoveredPeer connects to the peer unless it is connected or backed off already.
// Reports whether the peer is connected.
func (d *Discovery) handleDiscoveredPeer(ctx context.Context, p peer.AddrInfo) bool {
	logger := log.With("peer", p.ID.String())
	switch {
	case p.ID == d.host.ID():
		d.metrics.observeHandlePeer(ctx, handlePeerSkipSelf)
		return false
	case len(p.Addrs) == 0:
		d.metrics.observeHandlePeer(ctx, handlePeerEmptyAddrs)
		return false
	case d.misbehaving(p.ID):
		d.metrics.observeHandlePeer(ctx, handlePeerMisbehaved)
		return false
	}

	if d.host.Network().Connectedness(p.ID) == network.Connected {
		d.metrics.observeHandlePeer(ctx, handlePeerInSet)
		return true
	}

	err := d.connector.Connect(ctx, p)
	switch {
	case errors.Is(err, errBackoffNotEnded):
		d.metrics.observeHandlePeer(ctx, handlePeerBackoff)
		logger.Debug("skip handle: backoff")
		return false
	case err != nil:
		d.metrics.observeHandlePeer(ctx, handlePeerConnErr)
		logger.Debugw("unable to connect", "err", err)
		return false
	}

	d.metrics.observeHandlePeer(ctx, handlePeerConnected)
	logger.Debug("connected to discovered peer")
	return true
}

// connectionsLoop listens for connection events and keeps peer scores of disconnected
// peers only for a while. Misbehaving peers that get through anyway are disconnected again.
func (d *Discovery) connectionsLoop(ctx context.Context, sub event.Subscription) {
	defer sub.Close()

	gc := time.NewTicker(gcInterval)
	defer gc.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gc.C:
			d.tracker.gc()
		case e, ok := <-sub.Out():
			if !ok {
				log.Error("connection subscription was closed unexpectedly")
				return
			}

			evnt := e.(event.EvtPeerConnectednessChanged)
			switch evnt.Connectedness {
			case network.Connected:
				if d.misbehaving(evnt.Peer) {
					d.dht.RoutingTable().RemovePeer(evnt.Peer)
					d.closePeer(evnt.Peer)
					continue
				}
				d.tracker.connected(evnt.Peer)
			case network.NotConnected:
				d.tracker.disconnected(evnt.Peer)
			default:
			}
		}
	}
}
