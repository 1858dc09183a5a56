package p2p

import (
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// Config combines all configuration fields for P2P subsystem.
type Config struct {
	// ListenAddresses - Addresses to listen to on local NIC.
	ListenAddresses []string
	// AnnounceAddresses - Addresses to be announced/advertised for peers to connect to
	AnnounceAddresses []string
	// NoAnnounceAddresses - Addresses the P2P subsystem may know about, but that should not be
	// announced/advertised, as undialable from WAN
	NoAnnounceAddresses []string
	// MutualPeers are peers which have a bidirectional peering agreement with the configured node.
	// Connections with those peers are protected from being trimmed, dropped or negatively scored.
	// NOTE: Any two peers must bidirectionally configure each other on their MutualPeers field.
	MutualPeers []string
	// Bootnodes overrides the bootstrap peers of the network when set.
	Bootnodes []string
	// PeerExchange configures the node, whether it should share some peers to a pruned peer.
	PeerExchange bool
	// DHTServer runs the DHT in server mode, so that the node serves routing records to others.
	// Only enable it for nodes reachable from the public internet.
	DHTServer bool
	// ConnManager is a configuration tuple for ConnectionManager.
	ConnManager connManagerConfig
	// Discovery configures how peers to sync from are found.
	Discovery discoveryConfig
}

// DefaultConfig returns default configuration for P2P subsystem.
func DefaultConfig() Config {
	return Config{
		ListenAddresses: []string{
			"/ip4/0.0.0.0/udp/2121/quic-v1",
			"/ip6/::/udp/2121/quic-v1",
			"/ip4/0.0.0.0/tcp/2121",
			"/ip6/::/tcp/2121",
		},
		AnnounceAddresses: []string{},
		NoAnnounceAddresses: []string{
			"/ip4/0.0.0.0/udp/2121/quic-v1",
			"/ip4/127.0.0.1/udp/2121/quic-v1",
			"/ip6/::/udp/2121/quic-v1",
			"/ip4/0.0.0.0/tcp/2121",
			"/ip4/127.0.0.1/tcp/2121",
			"/ip6/::/tcp/2121",
		},
		MutualPeers:  []string{},
		Bootnodes:    []string{},
		PeerExchange: false,
		DHTServer:    false,
		ConnManager:  defaultConnManagerConfig(),
		Discovery:    defaultDiscoveryConfig(),
	}
}

// Validate performs basic validation of the config.
func (cfg *Config) Validate() error {
	if _, err := cfg.mutualPeers(); err != nil {
		return err
	}
	if _, err := cfg.bootnodes(); err != nil {
		return err
	}
	if cfg.ConnManager.Low > cfg.ConnManager.High {
		return fmt.Errorf("p2p: ConnManager.Low %d is above ConnManager.High %d",
			cfg.ConnManager.Low, cfg.ConnManager.High)
	}
	if cfg.Discovery.PeersLimit == 0 {
		return fmt.Errorf("p2p: Discovery.PeersLimit must be positive")
	}
	return nil
}

func (cfg *Config) mutualPeers() (_ []peer.AddrInfo, err error) {
	return parseP2pAddrs("MutualPeers", cfg.MutualPeers)
}

func (cfg *Config) bootnodes() (_ []peer.AddrInfo, err error) {
	return parseP2pAddrs("Bootnodes", cfg.Bootnodes)
}

func parseP2pAddrs(field string, addrs []string) (_ []peer.AddrInfo, err error) {
	maddrs := make([]ma.Multiaddr, len(addrs))
	for i, addr := range addrs {
		maddrs[i], err = ma.NewMultiaddr(addr)
		if err != nil {
			return nil, fmt.Errorf("failure to parse config.P2P.%s: %w", field, err)
		}
	}

	return peer.AddrInfosFromP2pAddrs(maddrs...)
}

type connManagerConfig struct {
	// Low and High are watermarks governing the number of connections that'll be maintained.
	Low, High int
	// GracePeriod is the amount of time a newly opened connection is given before it becomes
	// subject to pruning.
	GracePeriod time.Duration
}

func defaultConnManagerConfig() connManagerConfig {
	return connManagerConfig{
		Low:         50,
		High:        100,
		GracePeriod: time.Minute,
	}
}

type discoveryConfig struct {
	// PeersLimit is the soft limit of peers serving headers to stay connected to.
	PeersLimit uint
	// Interval is the interval between searches for more peers.
	Interval time.Duration
	// AdvertiseInterval makes the node advertise itself as a header server. Zero disables it.
	AdvertiseInterval time.Duration
}

func defaultDiscoveryConfig() discoveryConfig {
	return discoveryConfig{
		PeersLimit:        8,
		Interval:          time.Minute,
		AdvertiseInterval: 0,
	}
}
