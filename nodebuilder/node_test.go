package nodebuilder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	collectormetricpb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	"google.golang.org/protobuf/proto"

	"github.com/celestiaorg/celestia-light/header/sync"
	"github.com/celestiaorg/celestia-light/nodebuilder/p2p"
)

func TestLifecycle(t *testing.T) {
	node := TestNode(t)
	require.NotNil(t, node)
	require.NotNil(t, node.Config)
	require.NotNil(t, node.Host)
	require.NotNil(t, node.Syncer)
	require.NotNil(t, node.HeaderStore)
	require.Equal(t, p2p.Private, node.Network)
	require.Empty(t, node.Bootstrappers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := node.Start(ctx)
	require.NoError(t, err)

	// nobody to sync from on an empty private network
	assert.Equal(t, sync.Bootstrapping, node.Syncer.State().State)
	assert.NotEmpty(t, node.Host.Addrs())

	err = node.Stop(ctx)
	require.NoError(t, err)
}

func TestLifecycle_WithMetrics(t *testing.T) {
	url, stop := StartMockOtelCollectorHTTPServer(t)
	defer stop()

	otelCollectorURL := strings.ReplaceAll(url, "http://", "")

	node := TestNode(
		t,
		WithMetrics(
			[]otlpmetrichttp.Option{
				otlpmetrichttp.WithEndpoint(otelCollectorURL),
				otlpmetrichttp.WithInsecure(),
			},
		),
	)
	require.NotNil(t, node)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := node.Start(ctx)
	require.NoError(t, err)

	err = node.Stop(ctx)
	require.NoError(t, err)
}

func TestNew_NotInited(t *testing.T) {
	_, err := New(p2p.Private, NewMemStore())
	assert.ErrorIs(t, err, ErrNotInited)
}

func TestNew_InvalidNetwork(t *testing.T) {
	_, err := NewWithConfig("unknown", NewMemStore(), DefaultConfig())
	assert.ErrorIs(t, err, p2p.ErrInvalidNetwork)
}

func StartMockOtelCollectorHTTPServer(t *testing.T) (string, func()) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/metrics" || r.Method != http.MethodPost {
			t.Errorf("Expected to request [POST] '/v1/metrics', got: [%s] %s", r.Method, r.URL.Path)
		}

		if r.Header.Get("Content-Type") != "application/x-protobuf" {
			t.Errorf("Expected Content-Type: application/x-protobuf header, got: %s", r.Header.Get("Content-Type"))
		}

		response := collectormetricpb.ExportMetricsServiceResponse{}
		rawResponse, _ := proto.Marshal(&response)

		w.Header().Set("Content-Type", "application/x-protobuf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(rawResponse)
	}))

	server.EnableHTTP2 = true
	return server.URL, server.Close
}
