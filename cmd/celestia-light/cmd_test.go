package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-light/nodebuilder"
)

func TestLight(t *testing.T) {
	store := filepath.Join(t.TempDir(), ".celestia-light-private")

	t.Run("init", func(t *testing.T) {
		output := &bytes.Buffer{}
		rootCmd.SetOut(output)
		rootCmd.SetArgs([]string{
			"init",
			"--node.store", store,
			"--p2p.network", "private",
			"--p2p.bootnodes", "/ip4/127.0.0.1/tcp/2121/p2p/12D3KooWNaJ1y1Yio3fFJEXCZyd1Cat3jmrPdgkYCrHfKD3Ce21p",
		})
		err := rootCmd.ExecuteContext(context.Background())
		require.NoError(t, err)
		require.True(t, nodebuilder.IsInit(store))

		cfg, err := nodebuilder.LoadConfig(filepath.Join(store, "config.toml"))
		require.NoError(t, err)
		assert.Len(t, cfg.P2P.Bootnodes, 1)
	})

	t.Run("config-update", func(t *testing.T) {
		rootCmd.SetArgs([]string{
			"config-update",
			"--node.store", store,
			"--p2p.network", "private",
		})
		err := rootCmd.ExecuteContext(context.Background())
		require.NoError(t, err)
		require.True(t, nodebuilder.IsInit(store))
	})

	t.Run("config-remove", func(t *testing.T) {
		rootCmd.SetArgs([]string{
			"config-remove",
			"--node.store", store,
			"--p2p.network", "private",
		})
		err := rootCmd.ExecuteContext(context.Background())
		require.NoError(t, err)
		require.False(t, nodebuilder.IsInit(store))
	})
}

func TestInit_InvalidNetwork(t *testing.T) {
	rootCmd.SetArgs([]string{
		"init",
		"--node.store", filepath.Join(t.TempDir(), "store"),
		"--p2p.network", "unknown",
	})
	rootCmd.SilenceErrors = true
	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	output := &bytes.Buffer{}
	rootCmd.SetOut(output)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, output.String(), "Semantic version: unknown")
}
