package metrics

import (
	"time"

	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icwallet",
		Subsystem: "ledger_client",
		Name:      "operations_total",
		Help:      "Count of token ledger operations.",
	}, []string{"operation", "asset", "status"})
	ledgerOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "icwallet",
		Subsystem: "ledger_client",
		Name:      "operation_duration_seconds",
		Help:      "Duration of token ledger operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "asset", "status"})
	ledgerRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icwallet",
		Subsystem: "ledger_client",
		Name:      "read_retries_total",
		Help:      "Count of retried read-only ledger calls.",
	}, []string{"operation", "asset"})
)

// LedgerClient tracks metrics for one ledger endpoint.
type LedgerClient struct {
	asset model.Asset
}

// NewLedgerClient constructs a metrics collector labelled with the asset.
func NewLedgerClient(asset model.Asset) *LedgerClient {
	if asset == "" {
		asset = "unknown"
	}
	return &LedgerClient{asset: asset}
}

// Observe records a ledger operation outcome and duration.
func (m LedgerClient) Observe(operation string, err error, started time.Time) {
	status := statusOf(err)

	ledgerOperationsTotal.WithLabelValues(operation, string(m.asset), status).Inc()
	ledgerOperationDuration.WithLabelValues(operation, string(m.asset), status).Observe(time.Since(started).Seconds())
}

// ObserveRetry counts a retried read.
func (m LedgerClient) ObserveRetry(operation string) {
	ledgerRetriesTotal.WithLabelValues(operation, string(m.asset)).Inc()
}
