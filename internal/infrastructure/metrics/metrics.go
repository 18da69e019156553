package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chama_ledger"

// Metrics holds the ledger collectors. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	movementsTotal       *prometheus.CounterVec
	movementDuration     *prometheus.HistogramVec
	feesCollectedMinor   *prometheus.CounterVec
	settlementsTotal     *prometheus.CounterVec
	duplicateCallbacks   prometheus.Counter
	transientRetries     prometheus.Counter
	leaderboardRecompute *prometheus.CounterVec
	pendingReverified    prometheus.Counter
}

// NewMetrics registers the collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		movementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "movements_total",
				Help:      "Money movements partitioned by transaction type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		movementDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "movement_duration_seconds",
				Help:      "Time spent applying a money movement.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		feesCollectedMinor: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "fees_collected_minor_total",
				Help:      "Fees charged in currency minor units.",
			},
			[]string{"type"},
		),
		settlementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "settlement",
				Name:      "reconciliations_total",
				Help:      "Gateway reconciliations partitioned by resulting status.",
			},
			[]string{"status"},
		),
		duplicateCallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "settlement",
				Name:      "duplicate_callbacks_total",
				Help:      "Gateway callbacks received for already-terminal transactions.",
			},
		),
		transientRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "transient_retries_total",
				Help:      "Movements retried after a transient store failure.",
			},
		),
		leaderboardRecompute: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "leaderboard",
				Name:      "recomputes_total",
				Help:      "Leaderboard recomputations partitioned by result.",
			},
			[]string{"result"},
		),
		pendingReverified: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "settlement",
				Name:      "pending_reverified_total",
				Help:      "Stale pending deposits re-verified with the gateway.",
			},
		),
	}
}

// ObserveMovement records one engine call
func (m *Metrics) ObserveMovement(txType, outcome string, fee int64, started time.Time) {
	if m == nil {
		return
	}
	m.movementsTotal.WithLabelValues(txType, outcome).Inc()
	m.movementDuration.WithLabelValues(txType).Observe(time.Since(started).Seconds())
	if outcome == "completed" && fee > 0 {
		m.feesCollectedMinor.WithLabelValues(txType).Add(float64(fee))
	}
}

func (m *Metrics) ObserveTransientRetry() {
	if m == nil {
		return
	}
	m.transientRetries.Inc()
}

// ObserveSettlement records a reconciliation result
func (m *Metrics) ObserveSettlement(status string) {
	if m == nil {
		return
	}
	m.settlementsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveDuplicateCallback() {
	if m == nil {
		return
	}
	m.duplicateCallbacks.Inc()
}

func (m *Metrics) ObservePendingReverified(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pendingReverified.Add(float64(n))
}

func (m *Metrics) ObserveLeaderboardRecompute(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.leaderboardRecompute.WithLabelValues("error").Inc()
		return
	}
	m.leaderboardRecompute.WithLabelValues("success").Inc()
}
