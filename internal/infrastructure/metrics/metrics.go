package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CommissionMetrics covers activations, bonuses, matrix payouts and ledger postings.
type CommissionMetrics struct {
	// Activation gate outcomes
	ActivationsTotal *prometheus.CounterVec

	// Direct and self bonuses
	BonusesTotal     *prometheus.CounterVec
	BonusAmountTotal *prometheus.CounterVec

	// Matrix level payouts
	PayoutsTotal        *prometheus.CounterVec
	PayoutAmountTotal   *prometheus.CounterVec
	PayoutsSkippedTotal *prometheus.CounterVec
	DistributionsTotal  *prometheus.CounterVec

	// Placement
	PlacementsTotal *prometheus.CounterVec

	// Ledger
	LedgerPostingsTotal *prometheus.CounterVec
	LedgerErrorsTotal   *prometheus.CounterVec
}

func NewCommissionMetrics(reg prometheus.Registerer) *CommissionMetrics {
	factory := promauto.With(reg)

	return &CommissionMetrics{
		ActivationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrix_activations_total",
				Help: "Activation attempts by package and outcome (created or duplicate)",
			},
			[]string{"package_code", "outcome"},
		),

		BonusesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrix_bonuses_total",
				Help: "Direct and self bonuses credited",
			},
			[]string{"type", "key"},
		),

		BonusAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrix_bonus_amount_total",
				Help: "Sum of direct and self bonus amounts credited",
			},
			[]string{"type", "key"},
		),

		PayoutsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrix_payouts_total",
				Help: "Level payouts credited",
			},
			[]string{"pool_type", "level"},
		),

		PayoutAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrix_payout_amount_total",
				Help: "Sum of level payout amounts credited",
			},
			[]string{"pool_type"},
		),

		PayoutsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrix_payouts_skipped_total",
				Help: "Levels skipped because the amount was zero or the recipient was ineligible",
			},
			[]string{"pool_type", "reason"},
		),

		DistributionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrix_distributions_total",
				Help: "Distribution runs by outcome (applied or already_applied)",
			},
			[]string{"pool_type", "outcome"},
		),

		PlacementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrix_placements_total",
				Help: "Placement accounts opened, by how the parent was chosen",
			},
			[]string{"pool_type", "placement"},
		),

		LedgerPostingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_postings_total",
				Help: "Ledger entries written",
			},
			[]string{"type"},
		),

		LedgerErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_errors_total",
				Help: "Rejected ledger postings",
			},
			[]string{"reason"},
		),
	}
}

// JobMetrics covers the background job queue.
type JobMetrics struct {
	JobsEnqueuedTotal *prometheus.CounterVec
	JobsClaimedTotal  *prometheus.CounterVec
	JobsFinishedTotal *prometheus.CounterVec
	JobsRequeuedTotal *prometheus.CounterVec
	JobDuration       *prometheus.HistogramVec
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	factory := promauto.With(reg)

	return &JobMetrics{
		JobsEnqueuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobs_enqueued_total",
				Help: "Enqueue calls by job type and whether an existing job was returned",
			},
			[]string{"job_type", "deduplicated"},
		),

		JobsClaimedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobs_claimed_total",
				Help: "Jobs moved from PENDING to RUNNING",
			},
			[]string{"job_type"},
		),

		JobsFinishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobs_finished_total",
				Help: "Jobs finished by terminal status",
			},
			[]string{"job_type", "status"},
		),

		JobsRequeuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobs_requeued_total",
				Help: "Jobs returned to PENDING by reason (retry, stale, manual)",
			},
			[]string{"reason"},
		),

		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "job_duration_seconds",
				Help:    "Handler run time in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"job_type"},
		),
	}
}
