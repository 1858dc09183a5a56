package cmd

import (
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/celestiaorg/celestia-light/nodebuilder"
)

// UpdateConfig constructs a CLI command to fill the stored config with the
// defaults of the fields it lacks.
func UpdateConfig(fsets ...*flag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "config-update",
		Short:             "Updates the node's outdated config with default values from newly-added fields.",
		Args:              cobra.NoArgs,
		PersistentPreRunE: PersistentPreRunEnv,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return nodebuilder.UpdateConfig(StorePath(cmd.Context()))
		},
	}
	WithFlagSet(fsets)(cmd)
	return cmd
}

// RemoveConfig constructs a CLI command to remove the stored config.
func RemoveConfig(fsets ...*flag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "config-remove",
		Short:             "Removes the node's config. The next init writes the default one.",
		Args:              cobra.NoArgs,
		PersistentPreRunE: PersistentPreRunEnv,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return nodebuilder.RemoveConfig(StorePath(cmd.Context()))
		},
	}
	WithFlagSet(fsets)(cmd)
	return cmd
}
