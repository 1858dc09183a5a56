package headertest

import (
	"testing"

	"github.com/cometbft/cometbft/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-light/header"
)

func TestVerifyCommit_QuorumBoundary(t *testing.T) {
	// total power is 300, so exactly two thirds is 200
	suite := NewTestSuite(t, WithPowers(100, 100, 99, 1))
	suite.Head()

	byPower := func(powers ...int64) SignerFilter {
		return func(_ int, val *types.Validator) bool {
			for i, p := range powers {
				if val.VotingPower == p {
					powers = append(powers[:i], powers[i+1:]...)
					return true
				}
			}
			return false
		}
	}

	exact := suite.CandidateSignedBy(byPower(100, 100))
	err := header.VerifyCommit(exact.ChainID(), exact.ValidatorSet, exact.Commit)
	assert.ErrorIs(t, err, header.ErrInsufficientVotingPower)
	assert.ErrorIs(t, exact.Validate(), header.ErrInsufficientVotingPower)

	above := suite.CandidateSignedBy(byPower(100, 100, 1))
	err = header.VerifyCommit(above.ChainID(), above.ValidatorSet, above.Commit)
	assert.NoError(t, err)
	assert.NoError(t, above.Validate())
}

func TestVerifyCommit_InvalidSignaturesExcluded(t *testing.T) {
	suite := NewTestSuite(t, WithValidators(4, 25))
	suite.Head()

	// three out of four is a quorum
	h := suite.CandidateSignedBy(SignedByFirst(3))
	require.NoError(t, header.VerifyCommit(h.ChainID(), h.ValidatorSet, h.Commit))

	// a corrupted signature does not fail the commit, but does not count either
	h.Commit.Signatures[0].Signature = append([]byte{}, h.Commit.Signatures[0].Signature...)
	h.Commit.Signatures[0].Signature[0] ^= 0xFF
	err := header.VerifyCommit(h.ChainID(), h.ValidatorSet, h.Commit)
	assert.ErrorIs(t, err, header.ErrInsufficientVotingPower)

	all := suite.CandidateSignedBy(SignedByAll)
	all.Commit.Signatures[0].Signature = append([]byte{}, all.Commit.Signatures[0].Signature...)
	all.Commit.Signatures[0].Signature[0] ^= 0xFF
	assert.NoError(t, header.VerifyCommit(all.ChainID(), all.ValidatorSet, all.Commit))
}

func TestVerifyCommit_DuplicateSignerCountedOnce(t *testing.T) {
	suite := NewTestSuite(t, WithValidators(4, 25))
	suite.Head()

	h := suite.CandidateSignedBy(SignedByFirst(2))
	// the first validator's signature put in place of absent ones
	h.Commit.Signatures[2] = h.Commit.Signatures[0]
	h.Commit.Signatures[3] = h.Commit.Signatures[0]

	err := header.VerifyCommit(h.ChainID(), h.ValidatorSet, h.Commit)
	assert.ErrorIs(t, err, header.ErrInsufficientVotingPower)
}

func TestVerifyCommit_WrongChainID(t *testing.T) {
	suite := NewTestSuite(t)
	h := suite.NextHeader()

	err := header.VerifyCommit("other-chain", h.ValidatorSet, h.Commit)
	assert.ErrorIs(t, err, header.ErrInsufficientVotingPower)
}
