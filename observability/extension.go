package observability

import (
	"context"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/ext"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension          = (*MetricsExtension)(nil)
	_ ext.JobCreated         = (*MetricsExtension)(nil)
	_ ext.JobTransitioned    = (*MetricsExtension)(nil)
	_ ext.TransitionRejected = (*MetricsExtension)(nil)
	_ ext.FundsMoved         = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics via go-utils MetricFactory.
// Register it as a ledger extension to automatically track job creation,
// every transition, rejected requests, and escrow movements.
type MetricsExtension struct {
	JobCreated         gu.Counter
	JobAccepted        gu.Counter
	JobDelivered       gu.Counter
	JobCompleted       gu.Counter
	JobCancelled       gu.Counter
	JobDisputed        gu.Counter
	DisputeResolved    gu.Counter
	TransitionRejected gu.Counter
	FundsHeld          gu.Counter
	FundsReleased      gu.Counter
	FundsRefunded      gu.Counter
}

// NewMetricsExtension creates a MetricsExtension using a default metrics collector.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithFactory(gu.NewMetricsCollector("trustwork/observability"))
}

// NewMetricsExtensionWithFactory creates a MetricsExtension with the provided MetricFactory.
// Use gu.NewMetricsCollector for testing.
func NewMetricsExtensionWithFactory(factory gu.MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		JobCreated:         factory.Counter("trustwork.job.created"),
		JobAccepted:        factory.Counter("trustwork.job.accepted"),
		JobDelivered:       factory.Counter("trustwork.job.delivered"),
		JobCompleted:       factory.Counter("trustwork.job.completed"),
		JobCancelled:       factory.Counter("trustwork.job.cancelled"),
		JobDisputed:        factory.Counter("trustwork.job.disputed"),
		DisputeResolved:    factory.Counter("trustwork.dispute.resolved"),
		TransitionRejected: factory.Counter("trustwork.transition.rejected"),
		FundsHeld:          factory.Counter("trustwork.escrow.held"),
		FundsReleased:      factory.Counter("trustwork.escrow.released"),
		FundsRefunded:      factory.Counter("trustwork.escrow.refunded"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobCreated implements ext.JobCreated.
func (m *MetricsExtension) OnJobCreated(_ context.Context, _ *job.Job) error {
	m.JobCreated.Inc()
	return nil
}

// OnJobTransitioned implements ext.JobTransitioned. Status counters track
// where jobs land; resolve additionally counts as a resolved dispute.
func (m *MetricsExtension) OnJobTransitioned(_ context.Context, j *job.Job, action job.Action, _ job.Status) error {
	switch j.Status {
	case job.StatusAccepted:
		m.JobAccepted.Inc()
	case job.StatusDelivered:
		m.JobDelivered.Inc()
	case job.StatusCompleted:
		m.JobCompleted.Inc()
	case job.StatusCancelled:
		m.JobCancelled.Inc()
	case job.StatusDisputed:
		m.JobDisputed.Inc()
	}
	if action == job.ActionResolve {
		m.DisputeResolved.Inc()
	}
	return nil
}

// OnTransitionRejected implements ext.TransitionRejected.
func (m *MetricsExtension) OnTransitionRejected(_ context.Context, _ id.JobID, _ job.Action, _ identity.Address, _ error) error {
	m.TransitionRejected.Inc()
	return nil
}

// ── Ledger hooks ────────────────────────────────────

// OnFundsMoved implements ext.FundsMoved.
func (m *MetricsExtension) OnFundsMoved(_ context.Context, t *escrow.Transfer) error {
	switch t.Kind {
	case escrow.KindHold:
		m.FundsHeld.Inc()
	case escrow.KindRelease:
		m.FundsReleased.Inc()
	case escrow.KindRefund:
		m.FundsRefunded.Inc()
	}
	return nil
}
