package header

import (
	"encoding/hex"
	"fmt"

	"github.com/celestiaorg/celestia-light/header/p2p"
	"github.com/celestiaorg/celestia-light/header/store"
	"github.com/celestiaorg/celestia-light/header/sync"
)

// Config contains configuration parameters for header retrieval and management.
type Config struct {
	// GenesisHash anchors the chain of a Private network, which has no fixed genesis.
	// Public networks must either leave it empty or set their own genesis hash.
	GenesisHash string

	Store  store.Parameters
	Syncer sync.Parameters

	Server p2p.ServerParameters
	Client p2p.ClientParameters
}

// DefaultConfig returns default configuration for the header module.
func DefaultConfig() Config {
	return Config{
		Store:  store.DefaultParameters(),
		Syncer: sync.DefaultParameters(),
		Server: p2p.DefaultServerParameters(),
		Client: p2p.DefaultClientParameters(),
	}
}

// Validate performs basic validation of the config.
func (cfg *Config) Validate() error {
	if _, err := cfg.genesisHash(); err != nil {
		return err
	}
	if err := cfg.Store.Validate(); err != nil {
		return fmt.Errorf("module/header: invalid store params: %w", err)
	}
	// the syncer gets its genesis and clock from the node, so validate a copy that has them
	syncer := cfg.Syncer
	syncer.Clock = sync.DefaultParameters().Clock
	if err := syncer.Validate(); err != nil {
		return fmt.Errorf("module/header: invalid syncer params: %w", err)
	}
	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("module/header: invalid server params: %w", err)
	}
	if err := cfg.Client.Validate(); err != nil {
		return fmt.Errorf("module/header: invalid client params: %w", err)
	}
	return nil
}

func (cfg *Config) genesisHash() ([]byte, error) {
	if cfg.GenesisHash == "" {
		return nil, nil
	}

	hash, err := hex.DecodeString(cfg.GenesisHash)
	if err != nil {
		return nil, fmt.Errorf("module/header: invalid GenesisHash: %w", err)
	}
	if len(hash) != 32 {
		return nil, fmt.Errorf("module/header: invalid GenesisHash: expected 32 bytes, got %d", len(hash))
	}
	return hash, nil
}
