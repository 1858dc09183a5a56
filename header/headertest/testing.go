package headertest

import (
	"bytes"
	"crypto/rand"
	mrand "math/rand"
	"slices"
	"testing"
	"time"

	"github.com/cometbft/cometbft/crypto/tmhash"
	cmtrand "github.com/cometbft/cometbft/libs/rand"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	"github.com/cometbft/cometbft/proto/tendermint/version"
	"github.com/cometbft/cometbft/types"
	"github.com/stretchr/testify/require"

	libshare "github.com/celestiaorg/go-square/v2/share"
	"github.com/celestiaorg/rsmt2d"

	"github.com/celestiaorg/celestia-light/header"
)

// ChainID is the chain id of the headers generated by the TestSuite.
const ChainID = "private"

// TestSuite provides everything you need to test chain of Headers.
// If not, please don't hesitate to extend it for your case.
type TestSuite struct {
	t testing.TB

	privVals map[string]types.MockPV
	valSet   *types.ValidatorSet
	valPntr  int

	gen  *header.ExtendedHeader
	head *header.ExtendedHeader
	time time.Time
}

// Option configures the TestSuite.
type Option func(*suiteParams)

type suiteParams struct {
	powers []int64
}

// WithValidators sets the number of validators with equal voting power.
func WithValidators(num int, power int64) Option {
	return func(p *suiteParams) {
		p.powers = make([]int64, num)
		for i := range p.powers {
			p.powers[i] = power
		}
	}
}

// WithPowers sets one validator per given voting power.
func WithPowers(powers ...int64) Option {
	return func(p *suiteParams) {
		p.powers = powers
	}
}

// NewTestSuite setups a new test suite. By default, it has 3 validators with equal power.
func NewTestSuite(t testing.TB, opts ...Option) *TestSuite {
	params := &suiteParams{}
	WithValidators(3, 10)(params)
	for _, opt := range opts {
		opt(params)
	}

	valSet, privVals := ValidatorSetWithPowers(params.powers...)
	return &TestSuite{
		t:        t,
		privVals: privVals,
		valSet:   valSet,
		time:     time.Now().UTC().Add(-time.Hour).Round(time.Millisecond),
	}
}

// ValidatorSet returns the validator set signing the suite's headers.
func (s *TestSuite) ValidatorSet() *types.ValidatorSet {
	return s.valSet
}

// Genesis returns the first header of the suite's chain.
func (s *TestSuite) Genesis() *header.ExtendedHeader {
	s.Head()
	return s.gen
}

func (s *TestSuite) genesis() *header.ExtendedHeader {
	if s.gen != nil {
		return s.gen
	}

	dah := header.MinDataAvailabilityHeader()
	rh := s.GenRawHeader(1, nil, nil, dah.Hash())
	eh := &header.ExtendedHeader{
		RawHeader:    *rh,
		Commit:       s.Commit(rh),
		ValidatorSet: s.valSet,
		DAH:          &dah,
	}
	require.NoError(s.t, eh.Validate())
	s.gen = eh
	return eh
}

// Head returns the latest generated header, generating genesis if there is none.
func (s *TestSuite) Head() *header.ExtendedHeader {
	if s.head == nil {
		s.head = s.genesis()
	}
	return s.head
}

// GenExtendedHeaders generates the given amount of headers on top of the current head.
func (s *TestSuite) GenExtendedHeaders(num int) []*header.ExtendedHeader {
	headers := make([]*header.ExtendedHeader, num)
	for i := range headers {
		headers[i] = s.NextHeader()
	}
	return headers
}

// NextHeader generates the next valid header signed by all validators and makes it the head.
func (s *TestSuite) NextHeader() *header.ExtendedHeader {
	if s.head == nil {
		s.head = s.genesis()
		return s.head
	}

	s.head = s.CandidateSignedBy(SignedByAll)
	require.NoError(s.t, s.head.Validate())
	return s.head
}

// SignerFilter decides whether the validator at the given index signs a commit.
type SignerFilter func(idx int, val *types.Validator) bool

// SignedByAll makes every validator sign.
func SignedByAll(int, *types.Validator) bool { return true }

// SignedByFirst makes the first n validators of the set sign.
func SignedByFirst(n int) SignerFilter {
	return func(idx int, _ *types.Validator) bool { return idx < n }
}

// CandidateSignedBy generates a header on top of the current head, signed only by
// the validators passing the filter. Unlike NextHeader it neither validates the
// result nor makes it the head.
func (s *TestSuite) CandidateSignedBy(sign SignerFilter) *header.ExtendedHeader {
	head := s.Head()
	dah := header.MinDataAvailabilityHeader()
	rh := s.GenRawHeader(int64(head.Height()+1), head.Hash(), head.Commit.Hash(), dah.Hash()) //nolint:gosec
	return &header.ExtendedHeader{
		RawHeader:    *rh,
		Commit:       s.CommitSignedBy(rh, sign),
		ValidatorSet: s.valSet,
		DAH:          &dah,
	}
}

// HeaderAt generates a header at the given height signed by the suite's validators.
// The header is self-consistent, but does not link to the suite's chain.
func (s *TestSuite) HeaderAt(height uint64) *header.ExtendedHeader {
	dah := header.MinDataAvailabilityHeader()
	rh := s.GenRawHeader(int64(height), RandBlockID(s.t).Hash, cmtrand.Bytes(32), dah.Hash()) //nolint:gosec
	eh := &header.ExtendedHeader{
		RawHeader:    *rh,
		Commit:       s.Commit(rh),
		ValidatorSet: s.valSet,
		DAH:          &dah,
	}
	require.NoError(s.t, eh.Validate())
	return eh
}

// NextHeaderWithEDS generates the next valid header committing to the given square.
func (s *TestSuite) NextHeaderWithEDS(eds *rsmt2d.ExtendedDataSquare) *header.ExtendedHeader {
	head := s.Head()
	dah, err := header.NewDataAvailabilityHeader(eds)
	require.NoError(s.t, err)

	rh := s.GenRawHeader(int64(head.Height()+1), head.Hash(), head.Commit.Hash(), dah.Hash()) //nolint:gosec
	s.head = &header.ExtendedHeader{
		RawHeader:    *rh,
		Commit:       s.Commit(rh),
		ValidatorSet: s.valSet,
		DAH:          &dah,
	}
	require.NoError(s.t, s.head.Validate())
	return s.head
}

// Fork returns a suite with the same validators and head. Headers it generates
// from then on are valid but differ from the ones of the original suite.
func (s *TestSuite) Fork() *TestSuite {
	fork := *s
	fork.head = s.Head()
	return &fork
}

func (s *TestSuite) GenRawHeader(height int64, lastHeader, lastCommit header.Hash, dataHash []byte) *header.RawHeader {
	s.time = s.time.Add(time.Second)

	rh := RandRawHeader(s.t)
	rh.ChainID = ChainID
	rh.Height = height
	rh.Time = s.time
	rh.LastBlockID = types.BlockID{}
	if lastHeader != nil {
		rh.LastBlockID = types.BlockID{
			Hash:          lastHeader,
			PartSetHeader: types.PartSetHeader{Total: 1, Hash: cmtrand.Bytes(32)},
		}
	}
	rh.LastCommitHash = lastCommit
	rh.DataHash = dataHash
	rh.ValidatorsHash = s.valSet.Hash()
	rh.NextValidatorsHash = s.valSet.Hash()
	rh.ProposerAddress = s.nextProposer().Address
	return rh
}

// Commit signs the given header by all the validators.
func (s *TestSuite) Commit(h *header.RawHeader) *types.Commit {
	return s.CommitSignedBy(h, SignedByAll)
}

// CommitSignedBy signs the given header by the validators passing the filter.
// All the others are absent from the commit.
func (s *TestSuite) CommitSignedBy(h *header.RawHeader, sign SignerFilter) *types.Commit {
	bid := types.BlockID{
		Hash: h.Hash(),
		// Unfortunately, we still have to commit PartSetHeader even we don't need it in Celestia
		PartSetHeader: types.PartSetHeader{Total: 1, Hash: cmtrand.Bytes(32)},
	}
	round := int32(0)
	comms := make([]types.CommitSig, len(s.valSet.Validators))
	for i, val := range s.valSet.Validators {
		if !sign(i, val) {
			comms[i] = types.NewCommitSigAbsent()
			continue
		}

		v := &types.Vote{
			ValidatorAddress: val.Address,
			ValidatorIndex:   int32(i), //nolint:gosec
			Height:           h.Height,
			Round:            round,
			Timestamp:        h.Time,
			Type:             cmtproto.PrecommitType,
			BlockID:          bid,
		}
		sgntr, err := s.privVals[val.Address.String()].PrivKey.Sign(types.VoteSignBytes(h.ChainID, v.ToProto()))
		require.NoError(s.t, err)
		v.Signature = sgntr
		comms[i] = v.CommitSig()
	}

	return &types.Commit{
		Height:     h.Height,
		Round:      round,
		BlockID:    bid,
		Signatures: comms,
	}
}

func (s *TestSuite) nextProposer() *types.Validator {
	if s.valPntr >= len(s.valSet.Validators)-1 {
		s.valPntr = 0
	} else {
		s.valPntr++
	}
	return s.valSet.Validators[s.valPntr]
}

// RandExtendedHeader provides a valid ExtendedHeader fixture at a random height.
func RandExtendedHeader(t testing.TB) *header.ExtendedHeader {
	suite := NewTestSuite(t, WithValidators(3, 1))
	dah := header.MinDataAvailabilityHeader()

	rh := RandRawHeader(t)
	rh.ChainID = ChainID
	rh.DataHash = dah.Hash()
	rh.ValidatorsHash = suite.valSet.Hash()
	rh.ProposerAddress = suite.valSet.Validators[0].Address

	eh := &header.ExtendedHeader{
		RawHeader:    *rh,
		Commit:       suite.Commit(rh),
		ValidatorSet: suite.valSet,
		DAH:          &dah,
	}
	require.NoError(t, eh.Validate())
	return eh
}

// ValidatorSetWithPowers creates a validator set with one validator per given power,
// along with their private validators indexed by address.
func ValidatorSetWithPowers(powers ...int64) (*types.ValidatorSet, map[string]types.MockPV) {
	var (
		valz     = make([]*types.Validator, len(powers))
		privVals = make(map[string]types.MockPV, len(powers))
	)

	for i, power := range powers {
		privVal := types.NewMockPV()
		val := types.NewValidator(privVal.PrivKey.PubKey(), power)
		valz[i] = val
		privVals[val.Address.String()] = privVal
	}

	return types.NewValidatorSet(valz), privVals
}

// RandRawHeader provides a RawHeader fixture.
func RandRawHeader(t testing.TB) *header.RawHeader {
	return &header.RawHeader{
		Version:            version.Consensus{Block: 11, App: 1},
		ChainID:            "test",
		Height:             mrand.Int63n(1 << 40), //nolint:gosec
		Time:               time.Now().UTC().Round(time.Millisecond),
		LastBlockID:        RandBlockID(t),
		LastCommitHash:     cmtrand.Bytes(32),
		DataHash:           cmtrand.Bytes(32),
		ValidatorsHash:     cmtrand.Bytes(32),
		NextValidatorsHash: cmtrand.Bytes(32),
		ConsensusHash:      cmtrand.Bytes(32),
		AppHash:            cmtrand.Bytes(32),
		LastResultsHash:    cmtrand.Bytes(32),
		EvidenceHash:       tmhash.Sum([]byte{}),
		ProposerAddress:    cmtrand.Bytes(20),
	}
}

// RandBlockID provides a BlockID fixture.
func RandBlockID(testing.TB) types.BlockID {
	bid := types.BlockID{
		Hash: make([]byte, 32),
		PartSetHeader: types.PartSetHeader{
			Total: 123,
			Hash:  make([]byte, 32),
		},
	}
	_, _ = rand.Read(bid.Hash)
	_, _ = rand.Read(bid.PartSetHeader.Hash)
	return bid
}

// RandEDS generates an extended data square with the given original width
// out of random shares sorted by namespace.
func RandEDS(t testing.TB, width int) *rsmt2d.ExtendedDataSquare {
	shares := make([][]byte, width*width)
	for i := range shares {
		sh := make([]byte, libshare.ShareSize)
		_, _ = rand.Read(sh)
		// version zero namespaces have their id prefixed with zeros
		sh[0] = 0
		clear(sh[libshare.NamespaceVersionSize : libshare.NamespaceSize-10])
		shares[i] = sh
	}
	slices.SortFunc(shares, func(a, b []byte) int {
		return bytes.Compare(a[:libshare.NamespaceSize], b[:libshare.NamespaceSize])
	})

	eds, err := header.ExtendShares(shares)
	require.NoError(t, err)
	return eds
}
