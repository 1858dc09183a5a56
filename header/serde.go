package header

import (
	"errors"
	"fmt"

	core "github.com/cometbft/cometbft/types"
	pb "github.com/libp2p/go-libp2p-pubsub/pb"
	"golang.org/x/crypto/blake2b"

	header_pb "github.com/celestiaorg/celestia-light/header/pb"
)

// MarshalExtendedHeader serializes given ExtendedHeader to bytes using protobuf.
// Paired with UnmarshalExtendedHeader.
func MarshalExtendedHeader(in *ExtendedHeader) (_ []byte, err error) {
	if in.Commit == nil || in.ValidatorSet == nil || in.DAH == nil {
		return nil, fmt.Errorf("header: cannot marshal incomplete header at height %d", in.Height())
	}

	out := &header_pb.ExtendedHeader{
		Header: in.ToProto(),
		Commit: in.Commit.ToProto(),
		Dah:    in.DAH.ToProto(),
	}

	out.ValidatorSet, err = in.ValidatorSet.ToProto()
	if err != nil {
		return nil, err
	}

	return out.Marshal()
}

// UnmarshalExtendedHeader deserializes given data into a new ExtendedHeader using protobuf.
// Paired with MarshalExtendedHeader.
func UnmarshalExtendedHeader(data []byte) (*ExtendedHeader, error) {
	in := &header_pb.ExtendedHeader{}
	err := in.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	out := &ExtendedHeader{}
	out.RawHeader, err = core.HeaderFromProto(in.Header)
	if err != nil {
		return nil, err
	}

	out.Commit, err = core.CommitFromProto(in.Commit)
	if err != nil {
		return nil, err
	}

	out.ValidatorSet, err = core.ValidatorSetFromProto(in.ValidatorSet)
	if err != nil {
		return nil, err
	}

	out.DAH, err = DataAvailabilityHeaderFromProto(in.Dah)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// unmarshalCommit decodes only the Commit of a serialized ExtendedHeader.
func unmarshalCommit(data []byte) (*core.Commit, error) {
	in := &header_pb.ExtendedHeader{}
	err := in.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if in.Commit == nil {
		return nil, errors.New("header: missing commit")
	}

	return core.CommitFromProto(in.Commit)
}

// MsgID computes an id for a pubsub message.
func MsgID(pmsg *pb.Message) string {
	mID := func(data []byte) string {
		hash := blake2b.Sum256(data)
		return string(hash[:])
	}

	commit, err := unmarshalCommit(pmsg.Data)
	if err != nil {
		// the message gets rejected during validation anyway,
		// but it still needs some id
		return mID(pmsg.Data)
	}

	// Validators collect commit signatures asynchronously and only until the quorum is reached,
	// so the same header can be gossiped with different signature sets. The block ID, unlike the
	// message body, is the same for all of them.
	return commit.BlockID.String()
}
