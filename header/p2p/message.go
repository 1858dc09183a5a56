package p2p

import (
	"errors"
	"fmt"
	"strings"

	p2p_pb "github.com/celestiaorg/go-header/p2p/pb"

	"github.com/celestiaorg/celestia-light/header"
)

var errMalformedRequest = errors.New("header/p2p: malformed request")

// newHeadRequest asks for the head of the remote chain. A range request at origin zero
// stands for the head on the wire.
func newHeadRequest() *p2p_pb.HeaderRequest {
	return &p2p_pb.HeaderRequest{
		Data:   &p2p_pb.HeaderRequest_Origin{Origin: 0},
		Amount: 1,
	}
}

func newRangeRequest(from, amount uint64) *p2p_pb.HeaderRequest {
	return &p2p_pb.HeaderRequest{
		Data:   &p2p_pb.HeaderRequest_Origin{Origin: from},
		Amount: amount,
	}
}

func newHashRequest(hash header.Hash) *p2p_pb.HeaderRequest {
	return &p2p_pb.HeaderRequest{
		Data:   &p2p_pb.HeaderRequest_Hash{Hash: hash},
		Amount: 1,
	}
}

func isHeadRequest(req *p2p_pb.HeaderRequest) bool {
	origin, ok := req.GetData().(*p2p_pb.HeaderRequest_Origin)
	return ok && origin.Origin == 0
}

func validateRequest(req *p2p_pb.HeaderRequest) error {
	switch data := req.GetData().(type) {
	case *p2p_pb.HeaderRequest_Hash:
		if len(data.Hash) == 0 {
			return fmt.Errorf("%w: empty hash", errMalformedRequest)
		}
	case *p2p_pb.HeaderRequest_Origin:
	default:
		return fmt.Errorf("%w: neither origin nor hash is set", errMalformedRequest)
	}
	if req.GetAmount() == 0 {
		return fmt.Errorf("%w: zero amount", errMalformedRequest)
	}
	return nil
}

func requestKind(req *p2p_pb.HeaderRequest) string {
	switch {
	case len(req.GetHash()) > 0:
		return "hash"
	case isHeadRequest(req):
		return "head"
	default:
		return "range"
	}
}

func statusName(code p2p_pb.StatusCode) string {
	return strings.ToLower(code.String())
}
