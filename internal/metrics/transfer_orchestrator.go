package metrics

import (
	"time"

	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transferSendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icwallet",
		Subsystem: "transfer",
		Name:      "sends_total",
		Help:      "Count of confirmed sends.",
	}, []string{"asset", "mode", "status"})
	transferSendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "icwallet",
		Subsystem: "transfer",
		Name:      "send_duration_seconds",
		Help:      "Duration of confirmed sends.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 40},
	}, []string{"asset", "mode", "status"})
	transferHistoryWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icwallet",
		Subsystem: "transfer",
		Name:      "history_warnings_total",
		Help:      "Count of successful sends whose history record failed.",
	}, []string{"asset"})
)

// TransferOrchestrator tracks metrics for sends.
type TransferOrchestrator struct{}

// NewTransferOrchestrator constructs a TransferOrchestrator metrics collector.
func NewTransferOrchestrator() *TransferOrchestrator {
	return &TransferOrchestrator{}
}

// Observe records a send outcome and duration.
func (m TransferOrchestrator) Observe(asset model.Asset, mode model.Mode, err error, started time.Time) {
	status := statusOf(err)

	transferSendsTotal.WithLabelValues(string(asset), string(mode), status).Inc()
	transferSendDuration.WithLabelValues(string(asset), string(mode), status).Observe(time.Since(started).Seconds())
}

// ObserveHistoryWarning counts a send that succeeded without a history record.
func (m TransferOrchestrator) ObserveHistoryWarning(asset model.Asset) {
	transferHistoryWarningsTotal.WithLabelValues(string(asset)).Inc()
}
