package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records recompute passes, reconciliations and failed
// background store writes of open projects.
type LedgerMetrics struct {
	passes       *Counter
	passDuration *Histogram
	reconciles   *Counter
	pushFailures *Counter
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	passes, err1 := NewCounter(meter, "ledger.recompute.passes", "Number of recompute passes", "{pass}")
	duration, err2 := NewHistogram(meter, HistogramOpts{
		Name:        "ledger.recompute.duration",
		Description: "Duration of recompute passes",
		Unit:        "s",
		Boundaries:  PassDurationBuckets,
	})
	reconciles, err3 := NewCounter(meter, "ledger.sync.reconciles", "Number of snapshots reconciled", "{snapshot}")
	failures, err4 := NewCounter(meter, "ledger.store.push_failures", "Number of failed background store writes", "{write}")
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, err
	}
	return &LedgerMetrics{
		passes:       passes,
		passDuration: duration,
		reconciles:   reconciles,
		pushFailures: failures,
	}, nil
}

func (m *LedgerMetrics) RecordPass(ctx context.Context, trigger string, d time.Duration) {
	m.passes.Inc(ctx, AttrTrigger.String(trigger))
	m.passDuration.RecordDuration(ctx, d, AttrTrigger.String(trigger))
}

func (m *LedgerMetrics) RecordReconcile(ctx context.Context, changed, recomputed bool) {
	m.reconciles.Inc(ctx, AttrChanged.Bool(changed), AttrRecomputed.Bool(recomputed))
}

func (m *LedgerMetrics) RecordPushFailure(ctx context.Context, operation string) {
	m.pushFailures.Inc(ctx, AttrOperation.String(operation))
}
