package p2p

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-msgio"

	p2p_pb "github.com/celestiaorg/go-header/p2p/pb"

	"github.com/celestiaorg/celestia-light/header"
)

// Store is the read side of the header store served to other peers.
type Store interface {
	Height() uint64
	Head(context.Context) (*header.ExtendedHeader, error)
	Get(context.Context, header.Hash) (*header.ExtendedHeader, error)
	GetRange(ctx context.Context, from, to uint64) ([]*header.ExtendedHeader, error)
}

// ExchangeServer represents the server-side component for
// responding to inbound header-related requests.
type ExchangeServer struct {
	protocolID protocol.ID

	host  host.Host
	store Store

	metrics *serverMetrics

	ctx    context.Context
	cancel context.CancelFunc

	Params ServerParameters
}

// NewExchangeServer returns a new P2P server that handles inbound
// header-related requests.
func NewExchangeServer(
	host host.Host,
	store Store,
	network string,
	opts ...Option[ServerParameters],
) (*ExchangeServer, error) {
	params := DefaultServerParameters()
	for _, opt := range opts {
		opt(&params)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &ExchangeServer{
		protocolID: protocolID(network),
		host:       host,
		store:      store,
		Params:     params,
	}, nil
}

// Start sets the stream handler for inbound header-related requests.
func (serv *ExchangeServer) Start(context.Context) error {
	serv.ctx, serv.cancel = context.WithCancel(context.Background())
	log.Infow("server: listening for inbound header requests", "protocol", serv.protocolID)

	serv.host.SetStreamHandler(serv.protocolID, serv.requestHandler)
	return nil
}

// Stop removes the stream handler for serving header-related requests.
func (serv *ExchangeServer) Stop(context.Context) error {
	log.Info("server: stopping server")
	serv.host.RemoveStreamHandler(serv.protocolID)
	if serv.cancel != nil {
		serv.cancel()
	}
	return nil
}

// requestHandler handles inbound HeaderRequests.
func (serv *ExchangeServer) requestHandler(stream network.Stream) {
	start := time.Now()
	remote := stream.Conn().RemotePeer()

	err := stream.SetReadDeadline(time.Now().Add(serv.Params.ReadDeadline))
	if err != nil {
		log.Debugw("server: setting read deadline", "err", err)
	}

	rd := msgio.NewVarintReaderSize(stream, maxRequestMsgSize)
	msg, err := rd.ReadMsg()
	if err != nil {
		log.Debugw("server: reading header request from stream", "peer", remote, "err", err)
		stream.Reset() //nolint:errcheck
		return
	}
	req := new(p2p_pb.HeaderRequest)
	err = req.Unmarshal(msg)
	rd.ReleaseMsg(msg)
	if err == nil {
		err = validateRequest(req)
	}
	if err != nil {
		log.Warnw("server: invalid header request", "peer", remote, "err", err)
		serv.metrics.observeRequest(serv.ctx, requestKind(req), p2p_pb.StatusCode_INVALID, since(start))
		stream.Reset() //nolint:errcheck
		return
	}
	if err = stream.CloseRead(); err != nil {
		log.Debugw("server: closing read side of the stream", "err", err)
	}

	ctx, cancel := context.WithTimeout(serv.ctx, serv.Params.RangeRequestTimeout)
	defer cancel()

	var headers []*header.ExtendedHeader
	switch {
	case len(req.GetHash()) > 0:
		headers, err = serv.handleRequestByHash(ctx, req.GetHash())
	case isHeadRequest(req):
		headers, err = serv.handleHeadRequest(ctx)
	default:
		headers, err = serv.handleRangeRequest(ctx, req.GetOrigin(), req.GetAmount())
	}

	code := p2p_pb.StatusCode_OK
	switch {
	case err == nil:
	case errors.Is(err, header.ErrNotFound), errors.Is(err, header.ErrNoHead):
		code = p2p_pb.StatusCode_NOT_FOUND
	default:
		// over-limit requests get the stream reset, there is no status code for them
		log.Debugw("server: handling request", "peer", remote, "err", err)
		serv.metrics.observeRequest(ctx, requestKind(req), p2p_pb.StatusCode_INVALID, since(start))
		stream.Reset() //nolint:errcheck
		return
	}

	responses := make([]*p2p_pb.HeaderResponse, 0, max(len(headers), 1))
	if code != p2p_pb.StatusCode_OK {
		responses = append(responses, &p2p_pb.HeaderResponse{StatusCode: code})
	}
	for _, h := range headers {
		bin, err := h.MarshalBinary()
		if err != nil {
			log.Errorw("server: marshaling header", "height", h.Height(), "err", err)
			stream.Reset() //nolint:errcheck
			return
		}
		responses = append(responses, &p2p_pb.HeaderResponse{StatusCode: p2p_pb.StatusCode_OK, Body: bin})
	}

	wr := msgio.NewVarintWriter(stream)
	for _, resp := range responses {
		if err = stream.SetWriteDeadline(time.Now().Add(serv.Params.WriteDeadline)); err != nil {
			log.Debugw("server: setting write deadline", "err", err)
		}
		bin, err := resp.Marshal()
		if err == nil {
			err = wr.WriteMsg(bin)
		}
		if err != nil {
			log.Debugw("server: writing response to stream", "peer", remote, "err", err)
			stream.Reset() //nolint:errcheck
			return
		}
	}

	if err = stream.Close(); err != nil {
		log.Debugw("server: closing stream", "err", err)
	}
	serv.metrics.observeRequest(ctx, requestKind(req), code, since(start))
}

// handleRequestByHash returns the header with the given hash if it exists.
func (serv *ExchangeServer) handleRequestByHash(ctx context.Context, hash header.Hash) ([]*header.ExtendedHeader, error) {
	log.Debugw("server: handling header request", "hash", hash)
	h, err := serv.store.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	return []*header.ExtendedHeader{h}, nil
}

func (serv *ExchangeServer) handleHeadRequest(ctx context.Context) ([]*header.ExtendedHeader, error) {
	log.Debug("server: handling head request")
	head, err := serv.store.Head(ctx)
	if err != nil {
		return nil, err
	}
	return []*header.ExtendedHeader{head}, nil
}

// handleRangeRequest serves the headers from the given height on.
// The range is cut at the local head.
func (serv *ExchangeServer) handleRangeRequest(ctx context.Context, from, amount uint64) ([]*header.ExtendedHeader, error) {
	if amount > serv.Params.MaxRequestSize {
		log.Debugw("server: skip request for too many headers", "amount", amount)
		return nil, ErrLimitExceeded
	}

	height := serv.store.Height()
	if from > height {
		return nil, fmt.Errorf("%w: requested %d, head is %d", header.ErrNotFound, from, height)
	}
	to := min(from+amount, height+1)

	log.Debugw("server: handling headers request", "from", from, "to", to)
	return serv.store.GetRange(ctx, from, to)
}
