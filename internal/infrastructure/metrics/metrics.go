package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Entry metrics
	EntriesCreated   *prometheus.CounterVec
	EntryTransitions *prometheus.CounterVec

	// Settlement metrics
	EntriesSettled     *prometheus.CounterVec
	SettlementErrors   *prometheus.CounterVec
	SettlementDuration prometheus.Histogram
	SettledAmount      *prometheus.HistogramVec

	// Fan-out metrics
	CommissionsPaid      *prometheus.CounterVec
	CommissionAmount     prometheus.Histogram
	CommissionsSkipped   *prometheus.CounterVec
	RankPromotions       *prometheus.CounterVec
	RankRewards          prometheus.Counter
	FanoutFailures       *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec

	// Account metrics
	AccountsCreated prometheus.Counter
	UsersRegistered prometheus.Counter

	// Reconciliation metrics
	UnsettledSwept     prometheus.Counter
	BalanceMismatches  prometheus.Counter
	RewardsConfigLoads *prometheus.CounterVec

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxErrors    prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all Prometheus metrics and registers them on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Entry metrics
		EntriesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardledger_entries_created_total",
				Help: "Total ledger entries created by type and initial status",
			},
			[]string{"type", "status"},
		),
		EntryTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardledger_entry_transitions_total",
				Help: "Total entry status transitions by target status and outcome",
			},
			[]string{"status", "outcome"},
		),

		// Settlement metrics
		EntriesSettled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardledger_entries_settled_total",
				Help: "Total entries whose balance effect was applied",
			},
			[]string{"type"},
		),
		SettlementErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardledger_settlement_errors_total",
				Help: "Total settlement failures by reason",
			},
			[]string{"reason"},
		),
		SettlementDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rewardledger_settlement_duration_seconds",
			Help:    "Duration of the settlement transaction",
			Buckets: prometheus.DefBuckets,
		}),
		SettledAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rewardledger_settled_amount",
				Help:    "Settled entry amounts",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"direction"},
		),

		// Fan-out metrics
		CommissionsPaid: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardledger_commissions_paid_total",
				Help: "Total referral commissions created by category and level",
			},
			[]string{"category", "level"},
		),
		CommissionAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rewardledger_commission_amount",
			Help:    "Referral commission amounts",
			Buckets: []float64{0.01, 0.1, 1, 10, 100, 1000, 10000},
		}),
		CommissionsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardledger_commissions_skipped_total",
				Help: "Total commission levels skipped by reason",
			},
			[]string{"reason"},
		),
		RankPromotions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardledger_rank_promotions_total",
				Help: "Total rank promotions by rank",
			},
			[]string{"rank"},
		),
		RankRewards: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardledger_rank_rewards_total",
			Help: "Total one-time rank rewards created",
		}),
		FanoutFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardledger_fanout_failures_total",
				Help: "Total settled-event handler failures by handler",
			},
			[]string{"handler"},
		),
		NotificationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardledger_notification_failures_total",
				Help: "Total notifier delivery failures by event",
			},
			[]string{"event"},
		),

		// Account metrics
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardledger_users_registered_total",
			Help: "Total number of users registered",
		}),

		// Reconciliation metrics
		UnsettledSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardledger_unsettled_swept_total",
			Help: "Total completed-but-unsettled entries settled by the sweep",
		}),
		BalanceMismatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardledger_balance_mismatches_total",
			Help: "Total accounts whose balance differs from settled entries",
		}),
		RewardsConfigLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardledger_rewards_config_loads_total",
				Help: "Rewards configuration loads by source",
			},
			[]string{"source"},
		),

		// Outbox metrics
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardledger_outbox_published_total",
			Help: "Total outbox events published",
		}),
		OutboxErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardledger_outbox_errors_total",
			Help: "Total outbox publish failures",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rewardledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}
