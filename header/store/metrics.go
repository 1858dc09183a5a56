package store

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeKey = "outcome"
	failedKey  = "failed"
)

var meter = otel.Meter("header/store")

type metrics struct {
	appends  metric.Int64Counter
	flush    metric.Float64Histogram
	headInst metric.Int64ObservableGauge

	reg metric.Registration
}

// WithMetrics enables OTel metrics to monitor the store.
func (s *Store) WithMetrics() error {
	appends, err := meter.Int64Counter("hdr_store_append_counter",
		metric.WithDescription("header store appends by outcome"))
	if err != nil {
		return err
	}

	flush, err := meter.Float64Histogram("hdr_store_flush_time_histogram",
		metric.WithDescription("header store batch flush time histogram(s)"))
	if err != nil {
		return err
	}

	headInst, err := meter.Int64ObservableGauge("hdr_store_head_height",
		metric.WithDescription("height of the contiguous validated chain head"))
	if err != nil {
		return err
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(headInst, int64(s.Height())) //nolint:gosec
		return nil
	}, headInst)
	if err != nil {
		return err
	}

	s.metrics = &metrics{
		appends:  appends,
		flush:    flush,
		headInst: headInst,
		reg:      reg,
	}
	return nil
}

func (m *metrics) observeAppend(ctx context.Context, err error) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	outcome := "ok"
	switch {
	case err == nil:
	case isDuplicate(err):
		outcome = "duplicate"
	case isConflict(err):
		outcome = "conflict"
	case isOutOfOrder(err):
		outcome = "out_of_order"
	default:
		outcome = "error"
	}
	m.appends.Add(ctx, 1, metric.WithAttributes(attribute.String(outcomeKey, outcome)))
}

func (m *metrics) observeFlush(ctx context.Context, dur time.Duration, failed bool) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	m.flush.Record(ctx, dur.Seconds(), metric.WithAttributes(
		attribute.Bool(failedKey, failed)))
}

func (m *metrics) close() error {
	if m == nil {
		return nil
	}
	return m.reg.Unregister()
}
