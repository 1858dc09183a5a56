package p2p

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	p2p_pb "github.com/celestiaorg/go-header/p2p/pb"

	"github.com/celestiaorg/celestia-light/header"
)

const (
	failedKey = "failed"
	kindKey   = "kind"
	statusKey = "status"
)

var meter = otel.Meter("header/p2p")

type exchangeMetrics struct {
	responseSize     metric.Float64Histogram
	responseDuration metric.Float64Histogram
	notFound         metric.Int64Counter
}

// WithMetrics enables OTel metrics to monitor the requests of the Exchange.
func (ex *Exchange) WithMetrics() error {
	responseSize, err := meter.Float64Histogram("hdr_p2p_exch_clnt_resp_size_hist",
		metric.WithDescription("Size of get headers response in bytes"))
	if err != nil {
		return err
	}

	responseDuration, err := meter.Float64Histogram("hdr_p2p_exch_clnt_resp_dur_hist",
		metric.WithDescription("Duration of get headers request in seconds"))
	if err != nil {
		return err
	}

	notFound, err := meter.Int64Counter("hdr_p2p_exch_clnt_not_found_counter",
		metric.WithDescription("requests answered with no headers"))
	if err != nil {
		return err
	}

	ex.metrics = &exchangeMetrics{
		responseSize:     responseSize,
		responseDuration: responseDuration,
		notFound:         notFound,
	}
	return nil
}

func (m *exchangeMetrics) observeResponse(ctx context.Context, size uint64, dur float64, err error) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	if errors.Is(err, header.ErrNotFound) {
		m.notFound.Add(ctx, 1)
		return
	}
	attrs := metric.WithAttributes(attribute.Bool(failedKey, err != nil))
	m.responseSize.Record(ctx, float64(size), attrs)
	m.responseDuration.Record(ctx, dur, attrs)
}

type serverMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// WithMetrics enables OTel metrics to monitor the requests served by the ExchangeServer.
func (serv *ExchangeServer) WithMetrics() error {
	requests, err := meter.Int64Counter("hdr_p2p_exch_srvr_requests_counter",
		metric.WithDescription("inbound header requests by kind and status"))
	if err != nil {
		return err
	}

	duration, err := meter.Float64Histogram("hdr_p2p_exch_srvr_resp_dur_hist",
		metric.WithDescription("Duration of serving header requests in seconds"))
	if err != nil {
		return err
	}

	serv.metrics = &serverMetrics{
		requests: requests,
		duration: duration,
	}
	return nil
}

func (m *serverMetrics) observeRequest(ctx context.Context, kind string, code p2p_pb.StatusCode, dur float64) {
	if m == nil {
		return
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}

	attrs := metric.WithAttributes(
		attribute.String(kindKey, kind),
		attribute.String(statusKey, statusName(code)),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, dur, attrs)
}
