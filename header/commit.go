package header

import (
	"fmt"

	core "github.com/cometbft/cometbft/types"
)

// VerifyCommit checks that validators holding strictly more than 2/3 of the total voting power
// of the set signed the commit.
//
// Signatures that fail verification or come from unknown validators do not count,
// but do not fail the commit on their own. A validator is counted at most once.
func VerifyCommit(chainID string, vals *core.ValidatorSet, commit *core.Commit) error {
	total := vals.TotalVotingPower()
	if total <= 0 {
		return fmt.Errorf("%w: empty validator set", ErrInsufficientVotingPower)
	}

	var signed int64
	counted := make(map[string]struct{}, len(commit.Signatures))
	for idx, sig := range commit.Signatures {
		if sig.BlockIDFlag != core.BlockIDFlagCommit {
			continue
		}

		_, val := vals.GetByAddress(sig.ValidatorAddress)
		if val == nil {
			continue
		}
		if _, ok := counted[string(val.Address)]; ok {
			continue
		}

		signBytes := commit.VoteSignBytes(chainID, int32(idx)) //nolint:gosec
		if !val.PubKey.VerifySignature(signBytes, sig.Signature) {
			continue
		}

		counted[string(val.Address)] = struct{}{}
		signed += val.VotingPower
	}

	if signed*3 <= total*2 {
		return fmt.Errorf("%w: signed %d of %d, need more than two thirds",
			ErrInsufficientVotingPower, signed, total)
	}
	return nil
}
