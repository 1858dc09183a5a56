package header

import (
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var genesisHashFlag = "header.genesis-hash"

// Flags gives a set of hardcoded Header package flags.
func Flags() *flag.FlagSet {
	flags := &flag.FlagSet{}

	flags.String(
		genesisHashFlag,
		"",
		"Hex encoded hash of the genesis header. Required to verify the chain of a private network.",
	)
	return flags
}

// ParseFlags parses Header package flags from the given cmd and applies them to the passed config.
func ParseFlags(cmd *cobra.Command, cfg *Config) error {
	if !cmd.Flags().Changed(genesisHashFlag) {
		return nil
	}

	cfg.GenesisHash = cmd.Flag(genesisHashFlag).Value.String()
	_, err := cfg.genesisHash()
	return err
}
