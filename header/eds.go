package header

import (
	"crypto/sha256"
	"fmt"
	"math"

	libshare "github.com/celestiaorg/go-square/v2/share"
	"github.com/celestiaorg/nmt"
	"github.com/celestiaorg/rsmt2d"
)

// ExtendShares erasure codes the given original data square, given row by row,
// into an extended data square with NMT row and column trees.
func ExtendShares(shares [][]byte) (*rsmt2d.ExtendedDataSquare, error) {
	width := uint64(math.Sqrt(float64(len(shares))))
	if width == 0 || width*width != uint64(len(shares)) {
		return nil, fmt.Errorf("number of shares %d is not a square of a positive integer", len(shares))
	}

	return rsmt2d.ComputeExtendedDataSquare(shares, rsmt2d.NewLeoRSCodec(), NewConstructor(width))
}

// NewConstructor returns an rsmt2d tree constructor for a square of the given original width.
func NewConstructor(squareSize uint64) rsmt2d.TreeConstructorFn {
	return func(_ rsmt2d.Axis, axisIndex uint) rsmt2d.Tree {
		return NewErasuredNamespacedMerkleTree(squareSize, axisIndex)
	}
}

// ErasuredNamespacedMerkleTree is an NMT over one row or column of an extended square.
// Shares of the original quadrant are namespaced by their own prefix,
// all other shares by the parity namespace.
type ErasuredNamespacedMerkleTree struct {
	squareSize uint64
	axisIndex  uint64
	shareIndex uint64
	tree       *nmt.NamespacedMerkleTree
}

// NewErasuredNamespacedMerkleTree creates a tree for the axis at the given index of a square
// with the given original width.
func NewErasuredNamespacedMerkleTree(squareSize uint64, axisIndex uint) *ErasuredNamespacedMerkleTree {
	if squareSize == 0 {
		panic("cannot create an ErasuredNamespacedMerkleTree of squareSize == 0")
	}

	tree := nmt.New(
		sha256.New(),
		nmt.NamespaceIDSize(libshare.NamespaceSize),
		nmt.IgnoreMaxNamespace(true),
	)
	return &ErasuredNamespacedMerkleTree{
		squareSize: squareSize,
		axisIndex:  uint64(axisIndex),
		tree:       tree,
	}
}

// Push adds the next share of the axis to the tree.
func (w *ErasuredNamespacedMerkleTree) Push(data []byte) error {
	if w.axisIndex+1 > 2*w.squareSize || w.shareIndex+1 > 2*w.squareSize {
		return fmt.Errorf("pushed past predetermined square size: %d", w.squareSize)
	}
	if len(data) < libshare.NamespaceSize {
		return fmt.Errorf("share of %d bytes is too short to carry a namespace", len(data))
	}

	leaf := make([]byte, libshare.NamespaceSize+len(data))
	copy(leaf[libshare.NamespaceSize:], data)
	if w.axisIndex+1 > w.squareSize || w.shareIndex+1 > w.squareSize {
		copy(leaf, libshare.ParitySharesNamespace.Bytes())
	} else {
		copy(leaf, data[:libshare.NamespaceSize])
	}

	if err := w.tree.Push(leaf); err != nil {
		return err
	}
	w.shareIndex++
	return nil
}

// Root returns the namespaced root of the tree.
func (w *ErasuredNamespacedMerkleTree) Root() ([]byte, error) {
	return w.tree.Root()
}

func tailPaddingShare() []byte {
	sh := libshare.TailPaddingShare()
	return sh.ToBytes()
}
