package header

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when there is no requested header.
	ErrNotFound = errors.New("header: not found")
	// ErrNoHead is returned when there is no head in the store yet.
	ErrNoHead = errors.New("header: no chain head")
	// ErrUnverifiable is returned for a genesis height header when there is neither
	// a trusted predecessor nor a genesis hash to anchor it to.
	ErrUnverifiable = errors.New("header: no trusted anchor to verify against")
)

var (
	ErrHeightMismatch          = errors.New("height mismatch")
	ErrChainIDMismatch         = errors.New("chain id mismatch")
	ErrNonMonotonicTime        = errors.New("time is not monotonic")
	ErrValidatorHashMismatch   = errors.New("validator hash mismatch")
	ErrValidatorSetMismatch    = errors.New("validator set does not match validators hash")
	ErrLastHeaderHashMismatch  = errors.New("last header hash mismatch")
	ErrGenesisMismatch         = errors.New("genesis hash mismatch")
	ErrInsufficientVotingPower = errors.New("insufficient voting power")
	ErrInvalidDAH              = errors.New("invalid data availability header")
	ErrDataRootMismatch        = errors.New("data root mismatch")
)

// VerifyError is thrown when a header fails verification against a trusted anchor.
// Receiving one means the sender of the header served invalid data.
type VerifyError struct {
	// Reason is the underlying cause of the failure.
	Reason error
}

func (vr *VerifyError) Error() string {
	return fmt.Sprintf("header: verify: %s", vr.Reason.Error())
}

func (vr *VerifyError) Unwrap() error {
	return vr.Reason
}
