package header

import (
	"bytes"
	"fmt"
	"time"

	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	core "github.com/cometbft/cometbft/types"

	"github.com/celestiaorg/rsmt2d"
)

// Hash is the SHA-256 digest identifying a header.
type Hash = cmtbytes.HexBytes

// RawHeader is an alias to core.Header. It is
// "raw" because it is not yet wrapped to include
// the DataAvailabilityHeader.
type RawHeader = core.Header

// ExtendedHeader represents a wrapped "raw" header that includes
// information necessary for light nodes to be notified of new
// block headers and to reason about data availability.
type ExtendedHeader struct {
	RawHeader    `json:"header"`
	Commit       *core.Commit            `json:"commit"`
	ValidatorSet *core.ValidatorSet      `json:"validator_set"`
	DAH          *DataAvailabilityHeader `json:"dah"`
}

// MakeExtendedHeader assembles new ExtendedHeader.
// A nil square results in the DAH of the minimal empty square.
func MakeExtendedHeader(
	h *core.Header,
	comm *core.Commit,
	vals *core.ValidatorSet,
	eds *rsmt2d.ExtendedDataSquare,
) (*ExtendedHeader, error) {
	var (
		dah DataAvailabilityHeader
		err error
	)
	switch eds {
	case nil:
		dah = MinDataAvailabilityHeader()
	default:
		dah, err = NewDataAvailabilityHeader(eds)
		if err != nil {
			return nil, err
		}
	}

	return &ExtendedHeader{
		RawHeader:    *h,
		DAH:          &dah,
		Commit:       comm,
		ValidatorSet: vals,
	}, nil
}

func (eh *ExtendedHeader) IsZero() bool {
	return eh == nil
}

func (eh *ExtendedHeader) ChainID() string {
	return eh.RawHeader.ChainID
}

func (eh *ExtendedHeader) Height() uint64 {
	return uint64(eh.RawHeader.Height)
}

func (eh *ExtendedHeader) Time() time.Time {
	return eh.RawHeader.Time
}

// Hash returns Hash of the wrapped RawHeader.
// NOTE: It purposely overrides Hash method of RawHeader to get it directly from Commit without
// recomputing. Validate guarantees both are equal.
func (eh *ExtendedHeader) Hash() Hash {
	return eh.Commit.BlockID.Hash
}

// LastHeader returns the Hash of the previous header in the chain.
func (eh *ExtendedHeader) LastHeader() Hash {
	return eh.RawHeader.LastBlockID.Hash
}

// Equals returns whether the hash and height of the given header match.
func (eh *ExtendedHeader) Equals(header *ExtendedHeader) bool {
	return eh.Height() == header.Height() && bytes.Equal(eh.Hash(), header.Hash())
}

// String returns a short human-readable representation of the header.
func (eh *ExtendedHeader) String() string {
	return fmt.Sprintf("ExtendedHeader{height: %d, hash: %s}", eh.Height(), eh.Hash())
}

// Validate performs self-consistency checks of the header: well-formed fields, commit matching
// the header, a quorum of valid signatures and a well-formed DAH committed by DataHash.
func (eh *ExtendedHeader) Validate() error {
	if eh.Commit == nil || eh.ValidatorSet == nil || eh.DAH == nil {
		return fmt.Errorf("incomplete header at height %d", eh.Height())
	}

	err := eh.RawHeader.ValidateBasic()
	if err != nil {
		return fmt.Errorf("ValidateBasic error on RawHeader at height %d: %w", eh.Height(), err)
	}

	if eh.RawHeader.Version.App == 0 {
		return fmt.Errorf("header at height %d has app version 0, which is not a valid version", eh.Height())
	}

	err = eh.Commit.ValidateBasic()
	if err != nil {
		return fmt.Errorf("ValidateBasic error on Commit at height %d: %w", eh.Height(), err)
	}

	err = eh.ValidatorSet.ValidateBasic()
	if err != nil {
		return fmt.Errorf("ValidateBasic error on ValidatorSet at height %d: %w", eh.Height(), err)
	}

	// make sure the validator set is consistent with the header
	if valSetHash := eh.ValidatorSet.Hash(); !bytes.Equal(eh.ValidatorsHash, valSetHash) {
		return fmt.Errorf("%w: header %X, validator set %X at height %d",
			ErrValidatorSetMismatch, eh.ValidatorsHash, valSetHash, eh.Height())
	}

	// make sure the header is consistent with the commit
	if eh.Commit.Height != eh.RawHeader.Height {
		return fmt.Errorf("header and commit height mismatch: %d vs %d", eh.RawHeader.Height, eh.Commit.Height)
	}
	if hhash, chash := eh.RawHeader.Hash(), eh.Commit.BlockID.Hash; !bytes.Equal(hhash, chash) {
		return fmt.Errorf("commit signs block %X, header is block %X", chash, hhash)
	}

	err = VerifyCommit(eh.ChainID(), eh.ValidatorSet, eh.Commit)
	if err != nil {
		return fmt.Errorf("commit at height %d: %w", eh.Height(), err)
	}

	err = eh.DAH.ValidateBasic()
	if err != nil {
		return fmt.Errorf("%w at height %d: %w", ErrInvalidDAH, eh.Height(), err)
	}

	// ensure data root from raw header matches computed root
	if dahHash := eh.DAH.Hash(); !bytes.Equal(dahHash, eh.DataHash) {
		return fmt.Errorf("%w: data hash %X, computed root %X at height %d",
			ErrDataRootMismatch, eh.DataHash, dahHash, eh.Height())
	}
	return nil
}

// MarshalBinary marshals ExtendedHeader to binary.
func (eh *ExtendedHeader) MarshalBinary() ([]byte, error) {
	return MarshalExtendedHeader(eh)
}

// UnmarshalBinary unmarshals ExtendedHeader from binary.
func (eh *ExtendedHeader) UnmarshalBinary(data []byte) error {
	if eh == nil {
		return fmt.Errorf("header: cannot UnmarshalBinary - nil ExtendedHeader")
	}

	out, err := UnmarshalExtendedHeader(data)
	if err != nil {
		return err
	}

	*eh = *out
	return nil
}

// MarshalJSON marshals an ExtendedHeader to JSON.
// Uses cometbft encoder for cometbft compatibility.
func (eh *ExtendedHeader) MarshalJSON() ([]byte, error) {
	// alias the type to avoid going into recursion loop
	// because cmtjson.Marshal invokes custom json marshaling
	type Alias ExtendedHeader
	return cmtjson.Marshal((*Alias)(eh))
}

// UnmarshalJSON unmarshals an ExtendedHeader from JSON.
// Uses cometbft decoder for cometbft compatibility.
func (eh *ExtendedHeader) UnmarshalJSON(data []byte) error {
	type Alias ExtendedHeader
	return cmtjson.Unmarshal(data, (*Alias)(eh))
}
