package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/celestia-light/cmd"
)

func init() {
	rootCmd.AddCommand(
		cmd.Init(cmd.Flags()...),
		cmd.Start(cmd.Flags()...),
		cmd.UpdateConfig(cmd.Flags()...),
		cmd.RemoveConfig(cmd.Flags()...),
		versionCmd,
	)
	rootCmd.SetHelpCommand(&cobra.Command{})
}

func main() {
	err := run()
	if err != nil {
		os.Exit(1)
	}
}

func run() error {
	return rootCmd.ExecuteContext(context.Background())
}

var rootCmd = &cobra.Command{
	Use: "celestia-light [subcommand]",
	Short: `
		____      __          __  _           __    _       __    __
	  / ____/__  / /__  _____/ /_(_)___ _   / /   (_)___ _/ /_  / /_
	 / /   / _ \/ / _ \/ ___/ __/ / __ '/  / /   / / __ '/ __ \/ __/
	/ /___/  __/ /  __(__  ) /_/ / /_/ /  / /___/ / /_/ / / / / /_
	\____/\___/_/\___/____/\__/_/\__,_/  /_____/_/\__, /_/ /_/\__/
	                                             /____/
	`,
	Args: cobra.NoArgs,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}
