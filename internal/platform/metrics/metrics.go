package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the access pipeline. A single
// instance is created in main and shared by reference.
type Metrics struct {
	JoinsChecked        *prometheus.CounterVec
	BansEnforced        prometheus.Counter
	MutesEnforced       prometheus.Counter
	CodesRedeemed       *prometheus.CounterVec
	ApprovalsDispatched prometheus.Counter
	ApprovalsResolved   *prometheus.CounterVec
	AccessDemoted       prometheus.Counter
	EnforcementDuration prometheus.Histogram
}

// New creates and registers all instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		JoinsChecked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pl18_joins_checked_total",
			Help: "Join attempts evaluated by the access pipeline, by outcome",
		}, []string{"outcome"}),
		BansEnforced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pl18_bans_enforced_total",
			Help: "Joins rejected because an active ban matched",
		}),
		MutesEnforced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pl18_mutes_enforced_total",
			Help: "Chat messages suppressed because an active mute matched",
		}),
		CodesRedeemed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pl18_access_codes_redeemed_total",
			Help: "Access code redemption attempts, by outcome",
		}, []string{"outcome"}),
		ApprovalsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pl18_approvals_dispatched_total",
			Help: "Origin re-verification requests sent to approval channels",
		}),
		ApprovalsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pl18_approvals_resolved_total",
			Help: "Pending approvals resolved, by resolution",
		}, []string{"resolution"}),
		AccessDemoted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pl18_access_demoted_total",
			Help: "Access records demoted to expired by the sweeper",
		}),
		EnforcementDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pl18_enforcement_check_duration_ms",
			Help:    "Latency of ban/mute lookups in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
	}
}

// ObserveEnforcement records one enforcement lookup duration.
func (m *Metrics) ObserveEnforcement(d time.Duration) {
	m.EnforcementDuration.Observe(float64(d.Microseconds()) / 1000.0)
}
