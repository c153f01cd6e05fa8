package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/statebus-go/core/metrics"
	"github.com/codewandler/statebus-go/core/store"
)

// storeMetrics implements store.StoreMetrics using Prometheus.
type storeMetrics struct {
	stateWrites        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	txBegun            prometheus.Counter
	txCommitted        prometheus.Counter
	txRolledBack       *prometheus.CounterVec
	openTransactions   prometheus.Gauge
	commitDuration     prometheus.Histogram
}

// NewStoreMetrics creates a new Prometheus implementation of store.StoreMetrics.
func NewStoreMetrics(reg prometheus.Registerer) store.StoreMetrics {
	m := &storeMetrics{
		stateWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statebus_store_state_writes_total",
			Help: "Total number of direct state writes",
		}, []string{"success"}),

		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statebus_store_validation_failures_total",
			Help: "Total number of validator rejections",
		}, []string{"validator", "required"}),

		txBegun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statebus_store_transactions_begun_total",
			Help: "Total number of transactions opened",
		}),

		txCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statebus_store_transactions_committed_total",
			Help: "Total number of transactions committed",
		}),

		txRolledBack: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statebus_store_transactions_rolled_back_total",
			Help: "Total number of transactions rolled back",
		}, []string{"forced"}),

		openTransactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "statebus_store_open_transactions",
			Help: "Current number of in-flight transactions",
		}),

		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "statebus_store_commit_duration_seconds",
			Help:    "Commit time including final validation",
			Buckets: defaultBuckets,
		}),
	}

	reg.MustRegister(
		m.stateWrites,
		m.validationFailures,
		m.txBegun,
		m.txCommitted,
		m.txRolledBack,
		m.openTransactions,
		m.commitDuration,
	)

	return m
}

func (m *storeMetrics) StateWrite(success bool) {
	m.stateWrites.WithLabelValues(boolToStr(success)).Inc()
}

func (m *storeMetrics) ValidationFailure(validatorID string, required bool) {
	m.validationFailures.WithLabelValues(validatorID, boolToStr(required)).Inc()
}

func (m *storeMetrics) TransactionBegun() {
	m.txBegun.Inc()
}

func (m *storeMetrics) TransactionCommitted() {
	m.txCommitted.Inc()
}

func (m *storeMetrics) TransactionRolledBack(forced bool) {
	m.txRolledBack.WithLabelValues(boolToStr(forced)).Inc()
}

func (m *storeMetrics) OpenTransactions(count int) {
	m.openTransactions.Set(float64(count))
}

func (m *storeMetrics) CommitDuration() metrics.Timer {
	return newTimer(m.commitDuration)
}

var _ store.StoreMetrics = (*storeMetrics)(nil)
