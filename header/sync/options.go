package sync

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/celestiaorg/celestia-light/header"
)

// Option is the functional option that is applied to the Syncer instance
// to configure its parameters.
type Option func(*Parameters)

// Parameters is the set of parameters that must be configured for the syncer.
type Parameters struct {
	// BatchSize is the maximum amount of headers requested from a peer at once.
	BatchSize uint64
	// RequestTimeout bounds a single request to a peer.
	RequestTimeout time.Duration
	// DiscoveryInterval is how often the Syncer rechecks peers while it has no progress to make.
	DiscoveryInterval time.Duration
	// BootstrapTimeout is how long the Syncer waits for enough peers before backing off.
	BootstrapTimeout time.Duration
	// MaxBootstrapBackoff caps the delay between bootstrap attempts.
	MaxBootstrapBackoff time.Duration
	// MinPeers is the amount of routable peers required to leave bootstrapping.
	MinPeers int
	// MinResponses is the amount of peers that have to agree on a head to prefer it
	// over a higher one reported by fewer peers.
	MinResponses int
	// MaxHeadRequests limits the amount of peers asked for their head at once.
	MaxHeadRequests int
	// PendingSize is the maximum amount of gossiped headers kept ahead of the head.
	PendingSize int
	// ReportInterval is how often the Syncer logs its status.
	ReportInterval time.Duration

	// Genesis is the hash of the first header of the chain. If empty, the first
	// header can only be accepted with TrustUnanchoredGenesis.
	Genesis header.Hash `toml:"-"`
	// TrustUnanchoredGenesis makes the Syncer accept a self-consistent first header
	// on faith when there is no Genesis hash to check it against.
	TrustUnanchoredGenesis bool `toml:"-"`

	// Clock drives timers of the Syncer.
	Clock clock.Clock `toml:"-"`
}

// DefaultParameters returns the default params to configure the syncer.
func DefaultParameters() Parameters {
	return Parameters{
		BatchSize:           512,
		RequestTimeout:      time.Second * 10,
		DiscoveryInterval:   time.Second * 30,
		BootstrapTimeout:    time.Minute,
		MaxBootstrapBackoff: time.Minute * 5,
		MinPeers:            1,
		MinResponses:        2,
		MaxHeadRequests:     8,
		PendingSize:         1024,
		ReportInterval:      time.Minute,
		Clock:               clock.New(),
	}
}

// Validate performs basic validation of the parameters.
func (p *Parameters) Validate() error {
	if p.BatchSize == 0 {
		return fmt.Errorf("invalid batch size: %d", p.BatchSize)
	}
	if p.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout: %v", p.RequestTimeout)
	}
	if p.DiscoveryInterval <= 0 {
		return fmt.Errorf("invalid discovery interval: %v", p.DiscoveryInterval)
	}
	if p.BootstrapTimeout <= 0 {
		return fmt.Errorf("invalid bootstrap timeout: %v", p.BootstrapTimeout)
	}
	if p.MaxBootstrapBackoff < p.DiscoveryInterval {
		return fmt.Errorf("max bootstrap backoff %v is less than the discovery interval %v",
			p.MaxBootstrapBackoff, p.DiscoveryInterval)
	}
	if p.MinPeers <= 0 {
		return fmt.Errorf("invalid min peers: %d", p.MinPeers)
	}
	if p.MinResponses <= 0 {
		return fmt.Errorf("invalid min responses: %d", p.MinResponses)
	}
	if p.MaxHeadRequests < p.MinResponses {
		return fmt.Errorf("max head requests %d is less than min responses %d", p.MaxHeadRequests, p.MinResponses)
	}
	if p.PendingSize <= 0 {
		return fmt.Errorf("invalid pending size: %d", p.PendingSize)
	}
	if p.ReportInterval <= 0 {
		return fmt.Errorf("invalid report interval: %v", p.ReportInterval)
	}
	if p.Clock == nil {
		return fmt.Errorf("nil clock")
	}
	return nil
}

// WithBatchSize is a functional option that configures the
// `BatchSize` parameter.
func WithBatchSize(size uint64) Option {
	return func(p *Parameters) {
		p.BatchSize = size
	}
}

// WithRequestTimeout is a functional option that configures the
// `RequestTimeout` parameter.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(p *Parameters) {
		p.RequestTimeout = timeout
	}
}

// WithDiscoveryInterval is a functional option that configures the
// `DiscoveryInterval` parameter.
func WithDiscoveryInterval(interval time.Duration) Option {
	return func(p *Parameters) {
		p.DiscoveryInterval = interval
		if p.MaxBootstrapBackoff < interval {
			p.MaxBootstrapBackoff = interval
		}
	}
}

// WithBootstrapTimeout is a functional option that configures the
// `BootstrapTimeout` parameter.
func WithBootstrapTimeout(timeout time.Duration) Option {
	return func(p *Parameters) {
		p.BootstrapTimeout = timeout
	}
}

// WithMinPeers is a functional option that configures the
// `MinPeers` parameter.
func WithMinPeers(n int) Option {
	return func(p *Parameters) {
		p.MinPeers = n
	}
}

// WithMinResponses is a functional option that configures the
// `MinResponses` parameter.
func WithMinResponses(n int) Option {
	return func(p *Parameters) {
		p.MinResponses = n
	}
}

// WithPendingSize is a functional option that configures the
// `PendingSize` parameter.
func WithPendingSize(size int) Option {
	return func(p *Parameters) {
		p.PendingSize = size
	}
}

// WithReportInterval is a functional option that configures the
// `ReportInterval` parameter.
func WithReportInterval(interval time.Duration) Option {
	return func(p *Parameters) {
		p.ReportInterval = interval
	}
}

// WithGenesis is a functional option that configures the
// `Genesis` parameter.
func WithGenesis(hash header.Hash) Option {
	return func(p *Parameters) {
		p.Genesis = hash
	}
}

// WithTrustUnanchoredGenesis is a functional option that configures the
// `TrustUnanchoredGenesis` parameter.
func WithTrustUnanchoredGenesis(trust bool) Option {
	return func(p *Parameters) {
		p.TrustUnanchoredGenesis = trust
	}
}

// WithClock is a functional option that configures the
// `Clock` parameter.
func WithClock(c clock.Clock) Option {
	return func(p *Parameters) {
		p.Clock = c
	}
}

// WithParams is a functional option that overrides Parameters.
// The Clock is kept unless the new Parameters carry one.
func WithParams(new Parameters) Option {
	return func(old *Parameters) {
		clk := old.Clock
		*old = new
		if old.Clock == nil {
			old.Clock = clk
		}
	}
}
