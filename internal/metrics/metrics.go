// Package metrics holds the process-wide Prometheus instruments, registered
// on the default registry and served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DonationsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charity_donations_recorded_total",
		Help: "Donations accepted into the ledger.",
	})

	PoolsDistributed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charity_pools_distributed_total",
		Help: "Matching pools distributed.",
	})

	ProposalsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charity_proposals_decided_total",
		Help: "Operator decisions by outcome.",
	}, []string{"outcome"})

	ProposalsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charity_proposals_settled_total",
		Help: "Proposal executions reaching a terminal state, by outcome.",
	}, []string{"outcome"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charity_bank_webhook_events_total",
		Help: "Bank settlement webhook deliveries by result.",
	}, []string{"result"})

	ScoringRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charity_ai_scoring_runs_total",
		Help: "AI verification attempts by result.",
	}, []string{"result"})
)
