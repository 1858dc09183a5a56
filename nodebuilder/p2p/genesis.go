package p2p

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/celestiaorg/celestia-light/header"
)

// ErrNoGenesis is returned for networks without a fixed genesis, like Private ones.
var ErrNoGenesis = errors.New("params: network has no genesis hash")

// GenesisFor reports a hash of a genesis block for a given network.
// Genesis is strictly defined and can't be modified.
func GenesisFor(net Network) (header.Hash, error) {
	var err error
	net, err = net.Validate()
	if err != nil {
		return nil, err
	}

	genHash, ok := genesisList[net]
	if !ok || genHash == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoGenesis, net)
	}

	hash, err := hex.DecodeString(genHash)
	if err != nil {
		return nil, fmt.Errorf("params: decoding genesis hash of %s: %w", net, err)
	}
	return hash, nil
}

// NOTE: Every time we add a new long-running network, its genesis hash has to be added here.
var genesisList = map[Network]string{
	Mainnet: "6BE39EFD10BA412A9DB5288488303F5DD32CF386707A5BEF33617F4C43301872",
	Arabica: "5904E55478BA4B3002EE885621E007A2A6A2399662841912219AECD5D5CBE393",
	Mocha:   "B93BBE20A0FBFDF955811B6420F8433904664D45DB4BF51022BE4200C1A1680D",
	Private: "",
}
