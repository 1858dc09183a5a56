package header

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/celestiaorg/go-square/merkle"
	libshare "github.com/celestiaorg/go-square/v2/share"
	"github.com/celestiaorg/nmt"
	"github.com/celestiaorg/rsmt2d"

	header_pb "github.com/celestiaorg/celestia-light/header/pb"
)

// NamespacedHashSize is the size of an NMT root: the min and max namespaces followed by the digest.
const NamespacedHashSize = 2*libshare.NamespaceSize + sha256.Size

// maxExtendedSquareWidth bounds the amount of roots a DAH may carry.
const maxExtendedSquareWidth = 1024

// DataAvailabilityHeader (DAH) commits to the extended data square of a block
// through the NMT roots of all its rows and columns.
type DataAvailabilityHeader struct {
	RowRoots    [][]byte `json:"row_roots"`
	ColumnRoots [][]byte `json:"column_roots"`
}

// NewDataAvailabilityHeader generates a DataAvailabilityHeader from the given data square.
func NewDataAvailabilityHeader(eds *rsmt2d.ExtendedDataSquare) (DataAvailabilityHeader, error) {
	rowRoots, err := eds.RowRoots()
	if err != nil {
		return DataAvailabilityHeader{}, fmt.Errorf("computing row roots: %w", err)
	}
	colRoots, err := eds.ColRoots()
	if err != nil {
		return DataAvailabilityHeader{}, fmt.Errorf("computing column roots: %w", err)
	}

	return DataAvailabilityHeader{
		RowRoots:    rowRoots,
		ColumnRoots: colRoots,
	}, nil
}

var minDAH = sync.OnceValues(func() (DataAvailabilityHeader, error) {
	eds, err := ExtendShares([][]byte{tailPaddingShare()})
	if err != nil {
		return DataAvailabilityHeader{}, err
	}
	return NewDataAvailabilityHeader(eds)
})

// MinDataAvailabilityHeader returns the DAH of the smallest possible square:
// a single tail padding share, extended.
func MinDataAvailabilityHeader() DataAvailabilityHeader {
	dah, err := minDAH()
	if err != nil {
		panic(fmt.Errorf("computing min DAH: %w", err))
	}
	return dah.copy()
}

// Hash computes the data root: the merkle root over all row roots followed by all column roots.
func (dah *DataAvailabilityHeader) Hash() []byte {
	slices := make([][]byte, 0, len(dah.RowRoots)+len(dah.ColumnRoots))
	slices = append(slices, dah.RowRoots...)
	slices = append(slices, dah.ColumnRoots...)
	return merkle.HashFromByteSlices(slices)
}

// SquareSize returns the width of the extended square the DAH commits to.
func (dah *DataAvailabilityHeader) SquareSize() int {
	return len(dah.RowRoots)
}

// Equals reports whether both DAHs commit to the same square.
func (dah *DataAvailabilityHeader) Equals(other *DataAvailabilityHeader) bool {
	return bytes.Equal(dah.Hash(), other.Hash())
}

// ValidateBasic checks the structure of the DAH without touching any data.
func (dah *DataAvailabilityHeader) ValidateBasic() error {
	if dah == nil {
		return errors.New("nil data availability header")
	}

	rows, cols := len(dah.RowRoots), len(dah.ColumnRoots)
	switch {
	case rows == 0:
		return errors.New("no row roots")
	case rows != cols:
		return fmt.Errorf("unequal number of row and column roots: %d != %d", rows, cols)
	case bits.OnesCount(uint(rows)) != 1:
		return fmt.Errorf("square width %d is not a power of two", rows)
	case rows > maxExtendedSquareWidth:
		return fmt.Errorf("square width %d exceeds maximum of %d", rows, maxExtendedSquareWidth)
	}

	for i, root := range dah.RowRoots {
		if err := validateNamespacedHash(root); err != nil {
			return fmt.Errorf("row root %d: %w", i, err)
		}
	}
	for i, root := range dah.ColumnRoots {
		if err := validateNamespacedHash(root); err != nil {
			return fmt.Errorf("column root %d: %w", i, err)
		}
	}
	return nil
}

func validateNamespacedHash(root []byte) error {
	if len(root) != NamespacedHashSize {
		return fmt.Errorf("expected %d bytes, got %d", NamespacedHashSize, len(root))
	}

	minNs := nmt.MinNamespace(root, libshare.NamespaceSize)
	maxNs := nmt.MaxNamespace(root, libshare.NamespaceSize)
	if bytes.Compare(minNs, maxNs) > 0 {
		return fmt.Errorf("min namespace %X is greater than max namespace %X", minNs, maxNs)
	}
	return nil
}

func (dah *DataAvailabilityHeader) copy() DataAvailabilityHeader {
	cp := DataAvailabilityHeader{
		RowRoots:    make([][]byte, len(dah.RowRoots)),
		ColumnRoots: make([][]byte, len(dah.ColumnRoots)),
	}
	for i, root := range dah.RowRoots {
		cp.RowRoots[i] = bytes.Clone(root)
	}
	for i, root := range dah.ColumnRoots {
		cp.ColumnRoots[i] = bytes.Clone(root)
	}
	return cp
}

// ToProto converts the DAH into its protobuf representation.
func (dah *DataAvailabilityHeader) ToProto() *header_pb.DataAvailabilityHeader {
	return &header_pb.DataAvailabilityHeader{
		RowRoots:    dah.RowRoots,
		ColumnRoots: dah.ColumnRoots,
	}
}

// DataAvailabilityHeaderFromProto converts the protobuf representation back into a DAH.
func DataAvailabilityHeaderFromProto(dahp *header_pb.DataAvailabilityHeader) (*DataAvailabilityHeader, error) {
	if dahp == nil {
		return nil, errors.New("nil data availability header")
	}
	return &DataAvailabilityHeader{
		RowRoots:    dahp.RowRoots,
		ColumnRoots: dahp.ColumnRoots,
	}, nil
}
