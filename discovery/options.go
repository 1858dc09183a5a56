package discovery

import (
	"fmt"
	"time"
)

// headerServersTag is the rendezvous point where nodes serving headers advertise themselves.
const headerServersTag = "header-servers"

// Parameters is the set of Parameters that must be configured for the Discovery module
type Parameters struct {
	// PeersLimit is the soft limit of peers to stay connected to.
	PeersLimit uint
	// DiscoveryInterval is the interval between routing table refreshes and
	// searches for more peers.
	DiscoveryInterval time.Duration
	// AdvertiseInterval is the interval between advertising sessions.
	// Set 0 to disable advertising. Only nodes serving headers should advertise.
	AdvertiseInterval time.Duration
	// RequireBootnodes makes Discovery fail when there are no bootnodes to start from.
	// Every public network requires them.
	RequireBootnodes bool
	// Tag is used as rendezvous point for discovery service
	Tag string
}

// Option is a function that configures Discovery Parameters
type Option func(*Parameters)

// DefaultParameters returns the default Parameters' configuration values
// for the Discovery module
func DefaultParameters() *Parameters {
	return &Parameters{
		PeersLimit:        8,
		DiscoveryInterval: time.Minute,
		AdvertiseInterval: 0,
		Tag:               headerServersTag,
	}
}

// Validate validates the values in Parameters
func (p *Parameters) Validate() error {
	if p.PeersLimit == 0 {
		return fmt.Errorf("discovery: invalid option: value PeersLimit is 0, value must be positive")
	}
	if p.DiscoveryInterval <= 0 {
		return fmt.Errorf("discovery: invalid option: value DiscoveryInterval %s, value must be positive",
			p.DiscoveryInterval)
	}
	if p.AdvertiseInterval < 0 {
		return fmt.Errorf("discovery: invalid option: value AdvertiseInterval %s is negative",
			p.AdvertiseInterval)
	}
	if p.Tag == "" {
		return fmt.Errorf("discovery: invalid option: value Tag is empty, value must be non-empty")
	}
	return nil
}

// WithPeersLimit is a functional option that Discovery
// uses to set the PeersLimit configuration param
func WithPeersLimit(peersLimit uint) Option {
	return func(p *Parameters) {
		p.PeersLimit = peersLimit
	}
}

// WithDiscoveryInterval is a functional option that Discovery
// uses to set the DiscoveryInterval configuration param
func WithDiscoveryInterval(interval time.Duration) Option {
	return func(p *Parameters) {
		p.DiscoveryInterval = interval
	}
}

// WithAdvertiseInterval is a functional option that Discovery
// uses to set the AdvertiseInterval configuration param
func WithAdvertiseInterval(advInterval time.Duration) Option {
	return func(p *Parameters) {
		p.AdvertiseInterval = advInterval
	}
}

// WithRequireBootnodes is a functional option that Discovery
// uses to set the RequireBootnodes configuration param
func WithRequireBootnodes(require bool) Option {
	return func(p *Parameters) {
		p.RequireBootnodes = require
	}
}

// WithTag is a functional option that sets the Tag for the discovery service
func WithTag(tag string) Option {
	return func(p *Parameters) {
		p.Tag = tag
	}
}
