package metrics

import (
	"time"

	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	balanceFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icwallet",
		Subsystem: "balance_aggregator",
		Name:      "fetch_total",
		Help:      "Count of per-asset balance reads.",
	}, []string{"asset", "status"})
	balanceFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "icwallet",
		Subsystem: "balance_aggregator",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of a full balance fan-out.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})
	balanceStaleDiscardsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "icwallet",
		Subsystem: "balance_aggregator",
		Name:      "stale_discards_total",
		Help:      "Count of balance results dropped because the identity changed mid-flight.",
	})
)

// BalanceAggregator tracks metrics for balance fan-outs.
type BalanceAggregator struct{}

// NewBalanceAggregator constructs a BalanceAggregator metrics collector.
func NewBalanceAggregator() *BalanceAggregator {
	return &BalanceAggregator{}
}

// ObserveAsset records a single asset read.
func (m BalanceAggregator) ObserveAsset(asset model.Asset, err error) {
	balanceFetchTotal.WithLabelValues(string(asset), statusOf(err)).Inc()
}

// ObserveFetch records a whole fan-out; partial is true when at least one asset failed.
func (m BalanceAggregator) ObserveFetch(partial bool, started time.Time) {
	status := "success"
	if partial {
		status = "partial"
	}
	balanceFetchDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}

// ObserveStaleDiscard counts a dropped stale result.
func (m BalanceAggregator) ObserveStaleDiscard() {
	balanceStaleDiscardsTotal.Inc()
}
