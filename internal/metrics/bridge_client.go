package metrics

import (
	"time"

	"github.com/goodnatureofminers/icwallet/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bridgeOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icwallet",
		Subsystem: "bitcoin_bridge",
		Name:      "operations_total",
		Help:      "Count of bitcoin bridge operations.",
	}, []string{"operation", "network", "status"})
	bridgeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "icwallet",
		Subsystem: "bitcoin_bridge",
		Name:      "operation_duration_seconds",
		Help:      "Duration of bitcoin bridge operations.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
	}, []string{"operation", "network", "status"})
	bridgePendingDeposits = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "icwallet",
		Subsystem: "bitcoin_bridge",
		Name:      "pending_deposits",
		Help:      "Deposits seen by the bridge but not yet minted.",
	}, []string{"network"})
	bridgeWithdrawalTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icwallet",
		Subsystem: "bitcoin_bridge",
		Name:      "withdrawal_transitions_total",
		Help:      "Count of withdrawal state transitions observed by the poller.",
	}, []string{"network", "state"})
)

// BridgeClient tracks metrics for the bitcoin bridge.
type BridgeClient struct {
	network model.Network
}

// NewBridgeClient constructs a metrics collector for the bridge on a network.
func NewBridgeClient(network model.Network) *BridgeClient {
	if network == "" {
		network = "unknown"
	}
	return &BridgeClient{network: network}
}

// Observe records a bridge operation outcome and duration.
func (m BridgeClient) Observe(operation string, err error, started time.Time) {
	status := statusOf(err)

	bridgeOperationsTotal.WithLabelValues(operation, string(m.network), status).Inc()
	bridgeOperationDuration.WithLabelValues(operation, string(m.network), status).Observe(time.Since(started).Seconds())
}

// SetPendingDeposits publishes the number of deposits awaiting mint.
func (m BridgeClient) SetPendingDeposits(n int) {
	bridgePendingDeposits.WithLabelValues(string(m.network)).Set(float64(n))
}

// ObserveWithdrawalState counts a forward withdrawal transition.
func (m BridgeClient) ObserveWithdrawalState(state string) {
	bridgeWithdrawalTransitionsTotal.WithLabelValues(string(m.network), state).Inc()
}
