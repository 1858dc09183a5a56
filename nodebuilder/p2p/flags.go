package p2p

import (
	"fmt"

	"github.com/multiformats/go-multiaddr"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var (
	networkFlag   = "p2p.network"
	mutualFlag    = "p2p.mutual"
	bootnodesFlag = "p2p.bootnodes"
)

// Flags gives a set of p2p flags.
func Flags() *flag.FlagSet {
	flags := &flag.FlagSet{}

	flags.String(
		networkFlag,
		DefaultNetwork.String(),
		fmt.Sprintf("The name of the network to connect to, e.g. %s", listProvidedNetworks()),
	)
	flags.StringSlice(
		mutualFlag,
		nil,
		`Comma-separated multiaddresses of mutual peers to keep a prioritized connection with.
Such connection is immune to peer scoring slashing and connection manager trimming.
Peers must bidirectionally point to each other. (Format: multiformats.io/multiaddr)
`,
	)
	flags.StringSlice(
		bootnodesFlag,
		nil,
		"Comma-separated multiaddresses of peers to bootstrap from instead of the network defaults.",
	)

	return flags
}

// ParseNetwork tries to parse the network from the flags, falling back to the default network.
func ParseNetwork(cmd *cobra.Command) (Network, error) {
	parsed := cmd.Flag(networkFlag).Value.String()
	if parsed == "" {
		return DefaultNetwork, nil
	}

	net, err := Network(parsed).Validate()
	if err != nil {
		return "", fmt.Errorf("cmd: while parsing '%s': %w, try one of: %s",
			networkFlag, err, listProvidedNetworks())
	}
	return net, nil
}

// ParseFlags parses P2P flags from the given cmd and saves them to the passed config.
func ParseFlags(
	cmd *cobra.Command,
	cfg *Config,
) error {
	mutualPeers, err := cmd.Flags().GetStringSlice(mutualFlag)
	if err != nil {
		return err
	}
	if err := validateAddrs(mutualFlag, mutualPeers); err != nil {
		return err
	}
	if len(mutualPeers) != 0 {
		cfg.MutualPeers = mutualPeers
	}

	bootnodes, err := cmd.Flags().GetStringSlice(bootnodesFlag)
	if err != nil {
		return err
	}
	if err := validateAddrs(bootnodesFlag, bootnodes); err != nil {
		return err
	}
	if len(bootnodes) != 0 {
		cfg.Bootnodes = bootnodes
	}
	return nil
}

func validateAddrs(flag string, addrs []string) error {
	for _, addr := range addrs {
		if _, err := multiaddr.NewMultiaddr(addr); err != nil {
			return fmt.Errorf("cmd: while parsing '%s': %w", flag, err)
		}
	}
	return nil
}
