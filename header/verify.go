package header

import (
	"bytes"
	"fmt"
)

// Verify validates the given untrusted header as the direct successor of the trusted one.
// Every failure is reported as a *VerifyError.
//
// Verify neither skips heights nor verifies validator set rotations. Equality of
// the trusted NextValidatorsHash with the untrusted ValidatorsHash is the whole
// trust model.
func (eh *ExtendedHeader) Verify(untrst *ExtendedHeader) error {
	if eh.Height()+1 != untrst.Height() {
		return &VerifyError{
			Reason: fmt.Errorf("%w: expected %d, but got %d", ErrHeightMismatch, eh.Height()+1, untrst.Height()),
		}
	}

	if eh.ChainID() != untrst.ChainID() {
		return &VerifyError{
			Reason: fmt.Errorf("%w: expected %s, but got %s", ErrChainIDMismatch, eh.ChainID(), untrst.ChainID()),
		}
	}

	if !untrst.Time().After(eh.Time()) {
		return &VerifyError{
			Reason: fmt.Errorf("%w: %s is not after %s", ErrNonMonotonicTime, untrst.Time(), eh.Time()),
		}
	}

	if !bytes.Equal(untrst.LastHeader(), eh.Hash()) {
		return &VerifyError{
			Reason: fmt.Errorf("%w: expected (%X), but got (%X)",
				ErrLastHeaderHashMismatch,
				eh.Hash(),
				untrst.LastHeader(),
			),
		}
	}

	if !bytes.Equal(untrst.ValidatorsHash, eh.NextValidatorsHash) {
		return &VerifyError{
			Reason: fmt.Errorf("%w: expected (%X), but got (%X)",
				ErrValidatorHashMismatch,
				eh.NextValidatorsHash,
				untrst.ValidatorsHash,
			),
		}
	}

	if err := untrst.Validate(); err != nil {
		return &VerifyError{Reason: err}
	}
	return nil
}

// VerifyGenesis validates the given untrusted header as the first header of the chain.
// With no genesis hash given it returns ErrUnverifiable after checking the header is
// self-consistent, leaving the decision to trust it to the caller.
func VerifyGenesis(untrst *ExtendedHeader, genesis Hash) error {
	if untrst.Height() != 1 {
		return &VerifyError{
			Reason: fmt.Errorf("%w: expected genesis height 1, but got %d", ErrHeightMismatch, untrst.Height()),
		}
	}

	if err := untrst.Validate(); err != nil {
		return &VerifyError{Reason: err}
	}

	if len(genesis) == 0 {
		return ErrUnverifiable
	}

	if !bytes.Equal(untrst.Hash(), genesis) {
		return &VerifyError{
			Reason: fmt.Errorf("%w: expected (%X), but got (%X)", ErrGenesisMismatch, genesis, untrst.Hash()),
		}
	}
	return nil
}
