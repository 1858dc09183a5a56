package sync

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	sourceKey = "source"
	reasonKey = "reason"
)

var meter = otel.Meter("header/sync")

type metrics struct {
	rejected      metric.Int64Counter
	transitions   metric.Int64Counter
	stateInst     metric.Int64ObservableGauge
	remoteInst    metric.Int64ObservableGauge
	syncedHeaders metric.Int64Counter

	reg metric.Registration
}

// WithMetrics enables OTel metrics to monitor the Syncer.
func (s *Syncer) WithMetrics() error {
	rejected, err := meter.Int64Counter("hdr_sync_rejected_counter",
		metric.WithDescription("headers rejected by the syncer"))
	if err != nil {
		return err
	}

	transitions, err := meter.Int64Counter("hdr_sync_transitions_counter",
		metric.WithDescription("syncer state transitions"))
	if err != nil {
		return err
	}

	synced, err := meter.Int64Counter("hdr_sync_appended_counter",
		metric.WithDescription("headers appended by the syncer"))
	if err != nil {
		return err
	}

	stateInst, err := meter.Int64ObservableGauge("hdr_sync_state",
		metric.WithDescription("current state of the syncer"))
	if err != nil {
		return err
	}

	remoteInst, err := meter.Int64ObservableGauge("hdr_sync_remote_height",
		metric.WithDescription("highest known network head"))
	if err != nil {
		return err
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		st := s.State()
		o.ObserveInt64(stateInst, int64(st.State))
		o.ObserveInt64(remoteInst, int64(st.RemoteHeight)) //nolint:gosec
		return nil
	}, stateInst, remoteInst)
	if err != nil {
		return err
	}

	s.metrics = &metrics{
		rejected:      rejected,
		transitions:   transitions,
		stateInst:     stateInst,
		remoteInst:    remoteInst,
		syncedHeaders: synced,
		reg:           reg,
	}
	return nil
}

func (m *metrics) observeRejected(ctx context.Context, source string, err error) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String(sourceKey, source),
		attribute.String(reasonKey, rejectReason(err)),
	))
}

func (m *metrics) observeTransition(ctx context.Context, st State, reason StallReason) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", st.String()),
		attribute.String(reasonKey, reason.String()),
	))
}

func (m *metrics) observeAppended(ctx context.Context, source string) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	m.syncedHeaders.Add(ctx, 1, metric.WithAttributes(attribute.String(sourceKey, source)))
}

func (m *metrics) close() error {
	if m == nil {
		return nil
	}
	return m.reg.Unregister()
}
