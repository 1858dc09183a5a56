package p2p

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-msgio"

	p2p_pb "github.com/celestiaorg/go-header/p2p/pb"

	"github.com/celestiaorg/celestia-light/header"
)

// ErrLimitExceeded is returned when more headers are requested than a single request may carry.
var ErrLimitExceeded = errors.New("header/p2p: headers limit exceeded")

var errInvalidResponse = errors.New("header/p2p: invalid response")

// requests are tiny, anything bigger is not a request
const maxRequestMsgSize = 1 << 10

func protocolID(network string) protocol.ID {
	return protocol.ID(fmt.Sprintf("/%s/header-ex/v0.0.3", network))
}

func pubsubTopicID(network string) string {
	return fmt.Sprintf("/%s/header-sub/v0.0.1", network)
}

// sendMessage opens the stream to the given peer and sends the HeaderRequest to fetch
// headers. As a result sendMessage returns HeaderResponses, the size of fetched
// data and an error.
func sendMessage(
	ctx context.Context,
	host host.Host,
	to peer.ID,
	protocol protocol.ID,
	req *p2p_pb.HeaderRequest,
	maxMsgSize int,
) ([]*p2p_pb.HeaderResponse, uint64, error) {
	stream, err := host.NewStream(ctx, to, protocol)
	if err != nil {
		return nil, 0, fmt.Errorf("header/p2p: failed to open a new stream: %w", err)
	}

	// set stream deadline from the context deadline.
	// if it is empty, then we assume that it will
	// hang until the server will close the stream by the timeout.
	if dl, ok := ctx.Deadline(); ok {
		if err = stream.SetDeadline(dl); err != nil {
			log.Debugw("error setting deadline", "err", err)
		}
	}

	bin, err := req.Marshal()
	if err != nil {
		stream.Reset() //nolint:errcheck
		return nil, 0, err
	}
	if err = msgio.NewVarintWriter(stream).WriteMsg(bin); err != nil {
		stream.Reset() //nolint:errcheck
		return nil, 0, fmt.Errorf("header/p2p: failed to write a request: %w", err)
	}
	if err = stream.CloseWrite(); err != nil {
		stream.Reset() //nolint:errcheck
		return nil, 0, err
	}

	rd := msgio.NewVarintReaderSize(stream, maxMsgSize)
	responses := make([]*p2p_pb.HeaderResponse, 0, req.Amount)
	var totalSize uint64
	for range req.Amount {
		msg, err := rd.ReadMsg()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			stream.Reset() //nolint:errcheck
			return nil, 0, fmt.Errorf("header/p2p: failed to read a response: %w", err)
		}

		resp := new(p2p_pb.HeaderResponse)
		err = resp.Unmarshal(msg)
		totalSize += uint64(len(msg))
		rd.ReleaseMsg(msg)
		if err != nil {
			stream.Reset() //nolint:errcheck
			return nil, 0, fmt.Errorf("%w: %w", errInvalidResponse, err)
		}
		responses = append(responses, resp)
	}

	if err = stream.Close(); err != nil {
		log.Debugw("closing stream", "err", err)
	}
	return responses, totalSize, nil
}

// convertStatusCodeToError converts passed status code into an error.
func convertStatusCodeToError(code p2p_pb.StatusCode) error {
	switch code {
	case p2p_pb.StatusCode_OK:
		return nil
	case p2p_pb.StatusCode_NOT_FOUND:
		return header.ErrNotFound
	default:
		return fmt.Errorf("%w: unknown status code %d", errInvalidResponse, code)
	}
}

// since returns the time elapsed since the given moment in seconds.
func since(start time.Time) float64 {
	return time.Since(start).Seconds()
}
