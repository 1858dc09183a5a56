package discovery

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	discoveryEnoughPeersKey = "enough_peers"

	handlePeerResultKey                    = "result"
	handlePeerSkipSelf    handlePeerResult = "skip_self"
	handlePeerEmptyAddrs  handlePeerResult = "skip_empty_addresses"
	handlePeerMisbehaved  handlePeerResult = "skip_misbehaved"
	handlePeerBackoff     handlePeerResult = "skip_backoff"
	handlePeerConnected   handlePeerResult = "connected"
	handlePeerConnErr     handlePeerResult = "conn_err"
	handlePeerInSet       handlePeerResult = "already_connected"

	failedKey = "failed"
)

var meter = otel.Meter("discovery")

type handlePeerResult string

type metrics struct {
	peersAmount      metric.Int64ObservableGauge
	discoveryResult  metric.Int64Counter // attributes: enough_peers[bool]
	handlePeerResult metric.Int64Counter // attributes: result[string]
	advertise        metric.Int64Counter // attributes: failed[bool]
	bootnodes        metric.Int64Counter // attributes: failed[bool]
	penalties        metric.Float64Counter

	reg metric.Registration
}

// WithMetrics turns on metric collection in discovery.
func (d *Discovery) WithMetrics() error {
	metrics, err := initMetrics(d)
	if err != nil {
		return fmt.Errorf("discovery: init metrics: %w", err)
	}
	d.metrics = metrics
	return nil
}

func initMetrics(d *Discovery) (*metrics, error) {
	peersAmount, err := meter.Int64ObservableGauge("discovery_amount_of_peers",
		metric.WithDescription("amount of connected peers"))
	if err != nil {
		return nil, err
	}

	discoveryResult, err := meter.Int64Counter("discovery_find_peers_result",
		metric.WithDescription("result of find peers run"))
	if err != nil {
		return nil, err
	}

	handlePeerResultCounter, err := meter.Int64Counter("discovery_handler_peer_result",
		metric.WithDescription("result handling found peer"))
	if err != nil {
		return nil, err
	}

	advertise, err := meter.Int64Counter("discovery_advertise_event",
		metric.WithDescription("advertise events counter"))
	if err != nil {
		return nil, err
	}

	bootnodes, err := meter.Int64Counter("discovery_bootnode_dial",
		metric.WithDescription("bootnode dials counter"))
	if err != nil {
		return nil, err
	}

	penalties, err := meter.Float64Counter("discovery_peer_penalty",
		metric.WithDescription("sum of penalties given to peers"))
	if err != nil {
		return nil, err
	}

	backOffSize, err := meter.Int64ObservableGauge("discovery_backoff_amount",
		metric.WithDescription("amount of peers in backoff"))
	if err != nil {
		return nil, err
	}

	scored, err := meter.Int64ObservableGauge("discovery_scored_amount",
		metric.WithDescription("amount of peers with a tracked score"))
	if err != nil {
		return nil, err
	}

	callback := func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(peersAmount, int64(len(d.host.Network().Peers())))
		observer.ObserveInt64(backOffSize, int64(d.connector.Size()))
		observer.ObserveInt64(scored, int64(d.tracker.size()))
		return nil
	}
	reg, err := meter.RegisterCallback(callback, peersAmount, backOffSize, scored)
	if err != nil {
		return nil, fmt.Errorf("registering metrics callback: %w", err)
	}

	return &metrics{
		peersAmount:      peersAmount,
		discoveryResult:  discoveryResult,
		handlePeerResult: handlePeerResultCounter,
		advertise:        advertise,
		bootnodes:        bootnodes,
		penalties:        penalties,
		reg:              reg,
	}, nil
}

func (m *metrics) observeFindPeers(ctx context.Context, isEnoughPeers bool) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	m.discoveryResult.Add(ctx, 1,
		metric.WithAttributes(
			attribute.Bool(discoveryEnoughPeersKey, isEnoughPeers)))
}

func (m *metrics) observeHandlePeer(ctx context.Context, result handlePeerResult) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	m.handlePeerResult.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(handlePeerResultKey, string(result))))
}

func (m *metrics) observeAdvertise(ctx context.Context, err error) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	m.advertise.Add(ctx, 1,
		metric.WithAttributes(
			attribute.Bool(failedKey, err != nil)))
}

func (m *metrics) observeBootnode(ctx context.Context, err error) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	m.bootnodes.Add(ctx, 1,
		metric.WithAttributes(
			attribute.Bool(failedKey, err != nil)))
}

func (m *metrics) observePenalty(ctx context.Context, weight float64) {
	if m == nil {
		return
	}
	m.penalties.Add(ctx, weight)
}

func (m *metrics) close() error {
	if m == nil {
		return nil
	}
	return m.reg.Unregister()
}
