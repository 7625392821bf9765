package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ratesRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icwallet",
		Subsystem: "rates",
		Name:      "refresh_total",
		Help:      "Count of exchange rate refreshes.",
	}, []string{"status"})
	ratesAgeSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "icwallet",
		Subsystem: "rates",
		Name:      "table_age_seconds",
		Help:      "Age of the exchange rate table served to callers.",
	})
)

// RatesSource tracks exchange rate refreshes.
type RatesSource struct{}

// NewRatesSource constructs a RatesSource metrics collector.
func NewRatesSource() *RatesSource {
	return &RatesSource{}
}

// ObserveRefresh records a refresh attempt.
func (m RatesSource) ObserveRefresh(err error) {
	ratesRefreshTotal.WithLabelValues(statusOf(err)).Inc()
}

// SetAge publishes how old the served table is.
func (m RatesSource) SetAge(fetchedAt time.Time) {
	ratesAgeSeconds.Set(time.Since(fetchedAt).Seconds())
}
