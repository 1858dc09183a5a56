package p2p

import (
	"context"
	"testing"
	"time"

	"github.com/ipfs/go-datastore"
	"github.com/libp2p/go-libp2p/core/host"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	"github.com/libp2p/go-msgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	p2p_pb "github.com/celestiaorg/go-header/p2p/pb"

	"github.com/celestiaorg/celestia-light/header"
	"github.com/celestiaorg/celestia-light/header/headertest"
	"github.com/celestiaorg/celestia-light/header/store"
)

const testNetwork = "private"

func TestExchange_Head(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(5)
	ex, server := newTestExchange(ctx, t, headers)

	head, err := ex.Head(ctx, server.ID())
	require.NoError(t, err)
	assert.True(t, headers[4].Equals(head))
}

func TestExchange_HeadEmptyStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	ex, server := newTestExchange(ctx, t, nil)

	_, err := ex.Head(ctx, server.ID())
	assert.ErrorIs(t, err, header.ErrNotFound)
}

func TestExchange_GetRangeByHeight(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(10)
	ex, server := newTestExchange(ctx, t, headers)

	got, err := ex.GetRangeByHeight(ctx, server.ID(), 3, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, h := range got {
		assert.True(t, headers[i+2].Equals(h))
	}
}

func TestExchange_GetRangeByHeight_CutAtHead(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(10)
	ex, server := newTestExchange(ctx, t, headers)

	got, err := ex.GetRangeByHeight(ctx, server.ID(), 8, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.EqualValues(t, 10, got[2].Height())

	_, err = ex.GetRangeByHeight(ctx, server.ID(), 11, 10)
	assert.ErrorIs(t, err, header.ErrNotFound)
}

func TestExchange_LimitExceeded(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(10)
	ex, server := newTestExchange(ctx, t, headers, WithMaxRequestSize[ServerParameters](4))

	// over the local limit
	_, err := ex.GetRangeByHeight(ctx, server.ID(), 1, ex.Params.MaxRequestSize+1)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	// over the remote limit the stream is reset
	_, err = ex.GetRangeByHeight(ctx, server.ID(), 1, 5)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, header.ErrNotFound)
}

func TestExchange_GetByHeightAndHash(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(5)
	ex, server := newTestExchange(ctx, t, headers)

	h, err := ex.GetByHeight(ctx, server.ID(), 3)
	require.NoError(t, err)
	assert.True(t, headers[2].Equals(h))

	h, err = ex.Get(ctx, server.ID(), headers[3].Hash())
	require.NoError(t, err)
	assert.True(t, headers[3].Equals(h))

	_, err = ex.Get(ctx, server.ID(), headertest.RandExtendedHeader(t).Hash())
	assert.ErrorIs(t, err, header.ErrNotFound)
}

func TestExchangeServer_MalformedRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	ex, server := newTestExchange(ctx, t, suite.GenExtendedHeaders(2))

	stream, err := ex.host.NewStream(ctx, server.ID(), protocolID(testNetwork))
	require.NoError(t, err)
	// zero amount
	req := &p2p_pb.HeaderRequest{Data: &p2p_pb.HeaderRequest_Origin{Origin: 1}}
	bin, err := req.Marshal()
	require.NoError(t, err)
	require.NoError(t, msgio.NewVarintWriter(stream).WriteMsg(bin))
	require.NoError(t, stream.CloseWrite())

	_, err = msgio.NewVarintReaderSize(stream, 1<<10).ReadMsg()
	assert.Error(t, err)
}

func TestValidateRequest(t *testing.T) {
	assert.ErrorIs(t, validateRequest(&p2p_pb.HeaderRequest{Amount: 1}), errMalformedRequest)
	assert.ErrorIs(t, validateRequest(newRangeRequest(1, 0)), errMalformedRequest)
	assert.ErrorIs(t, validateRequest(newHashRequest(nil)), errMalformedRequest)

	require.NoError(t, validateRequest(newHashRequest(headertest.RandExtendedHeader(t).Hash())))
	require.NoError(t, validateRequest(newRangeRequest(5, 10)))

	head := newHeadRequest()
	require.NoError(t, validateRequest(head))
	assert.True(t, isHeadRequest(head))
	assert.False(t, isHeadRequest(newRangeRequest(1, 1)))
	assert.False(t, isHeadRequest(newHashRequest(headertest.RandExtendedHeader(t).Hash())))
}

// Responses must keep the header-ex layout of body at field 1 and status code at field 2,
// otherwise the bridges of public networks can't be understood.
func TestHeaderResponse_WireLayout(t *testing.T) {
	resp := &p2p_pb.HeaderResponse{Body: []byte("header"), StatusCode: p2p_pb.StatusCode_OK}
	bin, err := resp.Marshal()
	require.NoError(t, err)

	want := append([]byte{0x0a, byte(len("header"))}, "header"...)
	want = append(want, 0x10, byte(p2p_pb.StatusCode_OK))
	assert.Equal(t, want, bin)

	got := new(p2p_pb.HeaderResponse)
	require.NoError(t, got.Unmarshal(want))
	assert.Equal(t, p2p_pb.StatusCode_OK, got.StatusCode)
	assert.Equal(t, []byte("header"), got.Body)
	assert.NoError(t, convertStatusCodeToError(got.StatusCode))
	assert.ErrorIs(t, convertStatusCodeToError(p2p_pb.StatusCode_NOT_FOUND), header.ErrNotFound)
	assert.Error(t, convertStatusCodeToError(p2p_pb.StatusCode_INVALID))
}

// A head request is a range request at origin zero, the form remote servers expect.
func TestExchangeServer_HeadOnTheWire(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(3)
	ex, server := newTestExchange(ctx, t, headers)

	responses, _, err := sendMessage(ctx, ex.host, server.ID(), protocolID(testNetwork),
		&p2p_pb.HeaderRequest{Data: &p2p_pb.HeaderRequest_Origin{Origin: 0}, Amount: 1}, 1<<20)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.Equal(t, p2p_pb.StatusCode_OK, responses[0].StatusCode)

	head, err := header.UnmarshalExtendedHeader(responses[0].Body)
	require.NoError(t, err)
	assert.Equal(t, headers[2].Hash(), head.Hash())
}

// newTestExchange returns an Exchange on one host and a host serving the given headers.
func newTestExchange(
	ctx context.Context,
	t *testing.T,
	headers []*header.ExtendedHeader,
	opts ...Option[ServerParameters],
) (*Exchange, host.Host) {
	net, err := mocknet.FullMeshConnected(2)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = net.Close()
	})
	client, server := net.Hosts()[0], net.Hosts()[1]

	st := store.NewTestStore(ctx, t, datastore.NewMapDatastore())
	for _, h := range headers {
		require.NoError(t, st.Append(ctx, h))
	}

	serv, err := NewExchangeServer(server, st, testNetwork, opts...)
	require.NoError(t, err)
	require.NoError(t, serv.WithMetrics())
	require.NoError(t, serv.Start(ctx))
	t.Cleanup(func() {
		_ = serv.Stop(context.Background())
	})

	ex, err := NewExchange(client, testNetwork)
	require.NoError(t, err)
	require.NoError(t, ex.WithMetrics())
	return ex, server
}
