package p2p

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetwork_Validate(t *testing.T) {
	tests := []struct {
		in       Network
		expected Network
	}{
		{"celestia", Mainnet},
		{"mainnet", Mainnet},
		{"arabica-10", Arabica},
		{"arabica", Arabica},
		{"mocha-4", Mocha},
		{"mocha", Mocha},
		{"private", Private},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			net, err := tt.in.Validate()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, net)
		})
	}

	_, err := Network("mocha-3").Validate()
	assert.ErrorIs(t, err, ErrInvalidNetwork)
}

func TestGenesisFor(t *testing.T) {
	for _, net := range []Network{Mainnet, Arabica, Mocha} {
		hash, err := GenesisFor(net)
		require.NoError(t, err)
		assert.Len(t, hash, 32)
	}

	hash, err := GenesisFor(Mainnet)
	require.NoError(t, err)
	assert.Equal(t, "6BE39EFD10BA412A9DB5288488303F5DD32CF386707A5BEF33617F4C43301872", hash.String())

	_, err = GenesisFor(Private)
	assert.ErrorIs(t, err, ErrNoGenesis)

	_, err = GenesisFor("unknown")
	assert.ErrorIs(t, err, ErrInvalidNetwork)
}

func TestBootstrappersFor(t *testing.T) {
	expected := map[Network]int{
		Mainnet: 10,
		Arabica: 4,
		Mocha:   4,
		Private: 0,
	}
	for net, amount := range expected {
		t.Run(net.String(), func(t *testing.T) {
			bs, err := BootstrappersFor(net)
			require.NoError(t, err)
			assert.Len(t, bs, amount)
			for _, b := range bs {
				assert.NotEmpty(t, b.Addrs)
			}
		})
	}

	_, err := BootstrappersFor("unknown")
	assert.ErrorIs(t, err, ErrInvalidNetwork)
}

func TestListProvidedNetworks(t *testing.T) {
	assert.Equal(t, "arabica-10, celestia, mocha-4", listProvidedNetworks())
}
