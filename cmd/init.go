package cmd

import (
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/celestiaorg/celestia-light/nodebuilder"
)

// Init constructs a CLI command to initialize the Light Node with the given flags.
func Init(fsets ...*flag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "init",
		Short:             "Initialization for Celestia Light Node. Passed flags have persisted effect.",
		Args:              cobra.NoArgs,
		PersistentPreRunE: PersistentPreRunEnv,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg := NodeConfig(ctx)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return nodebuilder.Init(cfg, StorePath(ctx))
		},
	}
	WithFlagSet(fsets)(cmd)
	return cmd
}
