package p2p

import (
	"bytes"
	"context"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"

	p2p_pb "github.com/celestiaorg/go-header/p2p/pb"

	"github.com/celestiaorg/celestia-light/header"
)

var log = logging.Logger("header/p2p")

// Exchange sends outbound header requests to particular peers of the network.
// Choosing the peer is left to the caller, as is verifying what the peer served.
type Exchange struct {
	host       host.Host
	protocolID protocol.ID

	metrics *exchangeMetrics

	Params ClientParameters
}

// NewExchange creates a new Exchange for the given network.
func NewExchange(
	host host.Host,
	network string,
	opts ...Option[ClientParameters],
) (*Exchange, error) {
	params := DefaultClientParameters()
	for _, opt := range opts {
		opt(&params)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Exchange{
		host:       host,
		protocolID: protocolID(network),
		Params:     params,
	}, nil
}

// Head requests the head of the peer's chain.
func (ex *Exchange) Head(ctx context.Context, from peer.ID) (*header.ExtendedHeader, error) {
	log.Debugw("requesting head", "peer", from)
	headers, err := ex.request(ctx, from, newHeadRequest())
	if err != nil {
		return nil, err
	}
	return headers[0], nil
}

// GetByHeight requests the header at the given height from the peer.
func (ex *Exchange) GetByHeight(ctx context.Context, from peer.ID, height uint64) (*header.ExtendedHeader, error) {
	log.Debugw("requesting header", "peer", from, "height", height)
	// sanity check height
	if height == 0 {
		return nil, fmt.Errorf("specified request height must be greater than 0")
	}
	headers, err := ex.request(ctx, from, newRangeRequest(height, 1))
	if err != nil {
		return nil, err
	}
	return headers[0], nil
}

// Get requests the header with the given hash from the peer.
func (ex *Exchange) Get(ctx context.Context, from peer.ID, hash header.Hash) (*header.ExtendedHeader, error) {
	log.Debugw("requesting header", "peer", from, "hash", hash)
	headers, err := ex.request(ctx, from, newHashRequest(hash))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(headers[0].Hash(), hash) {
		return nil, fmt.Errorf("%w: expected hash %X, got %X", errInvalidResponse, hash, headers[0].Hash())
	}
	return headers[0], nil
}

// GetRangeByHeight requests up to amount consecutive headers starting at the given height
// from the peer. The peer may serve fewer headers than requested if its chain is shorter.
func (ex *Exchange) GetRangeByHeight(
	ctx context.Context,
	from peer.ID,
	height, amount uint64,
) ([]*header.ExtendedHeader, error) {
	if amount == 0 {
		return nil, nil
	}
	if height == 0 {
		return nil, fmt.Errorf("specified request height must be greater than 0")
	}
	if amount > ex.Params.MaxRequestSize {
		return nil, ErrLimitExceeded
	}
	log.Debugw("requesting range", "peer", from, "from", height, "amount", amount)
	return ex.request(ctx, from, newRangeRequest(height, amount))
}

// request sends the HeaderRequest to a remote peer.
func (ex *Exchange) request(
	ctx context.Context,
	to peer.ID,
	req *p2p_pb.HeaderRequest,
) (_ []*header.ExtendedHeader, err error) {
	start := time.Now()
	var size uint64
	defer func() {
		ex.metrics.observeResponse(ctx, size, since(start), err)
	}()

	responses, size, err := sendMessage(ctx, ex.host, to, ex.protocolID, req, ex.Params.MaxMessageSize)
	if err != nil {
		log.Debugw("err sending request", "peer", to, "err", err)
		return nil, err
	}
	if len(responses) == 0 {
		return nil, header.ErrNotFound
	}

	headers := make([]*header.ExtendedHeader, 0, len(responses))
	for _, resp := range responses {
		if err = convertStatusCodeToError(resp.StatusCode); err != nil {
			return nil, err
		}
		h, err := header.UnmarshalExtendedHeader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidResponse, err)
		}
		headers = append(headers, h)
	}
	return headers, nil
}
