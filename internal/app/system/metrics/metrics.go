// Package metrics exports governance activity to Prometheus. Counters are
// driven by committed audit entries; gauges are read from the store on scrape.
package metrics

import (
	"context"

	metricsstore "github.com/dalemusser/civic/internal/app/store/metrics"
	"github.com/dalemusser/civic/internal/app/system/timeouts"
	"github.com/dalemusser/civic/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "civic"

// Metrics holds the governance counters.
type Metrics struct {
	entries     *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	moderation  prometheus.Counter
}

// New registers the counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		entries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Committed governance audit entries by action type",
		}, []string{"action"}),
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposal_resolutions_total",
			Help:      "Proposal outcomes (approved, rejected, expired, execution_failed)",
		}, []string{"outcome"}),
		moderation: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_entries_total",
			Help:      "Entries recorded on behalf of the moderation peer",
		}),
	}
}

// Observe is an auditlog subscriber.
func (m *Metrics) Observe(e models.AuditEntry) {
	m.entries.WithLabelValues(string(e.ActionType)).Inc()
	if e.ActionType.IsModeration() {
		m.moderation.Inc()
	}
	// Join request resolutions share these action types but carry no
	// proposal_action detail.
	if e.Details["proposal_action"] == "" {
		return
	}
	switch e.ActionType {
	case models.AuditVoteResolutionApproved:
		m.resolutions.WithLabelValues("approved").Inc()
	case models.AuditVoteResolutionRejected:
		m.resolutions.WithLabelValues("rejected").Inc()
	case models.AuditProposalExpired:
		m.resolutions.WithLabelValues("expired").Inc()
	case models.AuditExecutionFailed:
		m.resolutions.WithLabelValues("execution_failed").Inc()
	}
}

// CountsFunc reads the current governance totals.
type CountsFunc func(ctx context.Context) metricsstore.Counts

// RegisterGauges exports the totals returned by fetch. fetch runs once per
// gauge per scrape, bounded by the ping timeout.
func RegisterGauges(reg prometheus.Registerer, fetch CountsFunc) {
	factory := promauto.With(reg)
	gauge := func(name, help string, pick func(metricsstore.Counts) int64) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), timeouts.Ping())
			defer cancel()
			return float64(pick(fetch(ctx)))
		})
	}
	gauge("groups", "Groups on the platform", func(c metricsstore.Counts) int64 { return c.Groups })
	gauge("group_members", "Memberships across all groups", func(c metricsstore.Counts) int64 { return c.Members })
	gauge("group_managers", "Founders and managers across all groups", func(c metricsstore.Counts) int64 { return c.Managers })
	gauge("active_proposals", "Proposals open for voting", func(c metricsstore.Counts) int64 { return c.ActiveProposals })
	gauge("open_join_requests", "Join requests awaiting a decision", func(c metricsstore.Counts) int64 { return c.OpenJoinRequests })
}
