package pb

import (
	"io"
	"testing"

	types "github.com/cometbft/cometbft/proto/tendermint/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtendedHeader_Unmarshal(t *testing.T) {
	in := &ExtendedHeader{
		Header: &types.Header{ChainID: "private", Height: 5},
		Commit: &types.Commit{Height: 5},
		Dah: &DataAvailabilityHeader{
			RowRoots:    [][]byte{[]byte("row-1"), []byte("row-2")},
			ColumnRoots: [][]byte{[]byte("col-1"), []byte("col-2")},
		},
	}
	bin, err := in.Marshal()
	require.NoError(t, err)
	require.Len(t, bin, in.Size())
	// header comes first under field 1
	assert.Equal(t, byte(0xa), bin[0])

	// fields unknown to this version are skipped
	withUnknown := append([]byte{}, bin...)
	withUnknown = append(withUnknown, 0x28, 0x07)             // field 5, varint
	withUnknown = append(withUnknown, 0x32, 0x02, 0xff, 0xff) // field 6, bytes

	out := &ExtendedHeader{}
	require.NoError(t, out.Unmarshal(withUnknown))
	assert.Equal(t, "private", out.Header.ChainID)
	assert.EqualValues(t, 5, out.Commit.Height)
	assert.Nil(t, out.ValidatorSet)
	assert.Equal(t, in.Dah.RowRoots, out.Dah.RowRoots)
	assert.Equal(t, in.Dah.ColumnRoots, out.Dah.ColumnRoots)

	err = out.Unmarshal(bin[:len(bin)-1])
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// a varint where a message is expected
	err = out.Unmarshal([]byte{0x08, 0x01})
	assert.Error(t, err)
}
