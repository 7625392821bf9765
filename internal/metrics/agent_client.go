package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	agentCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icwallet",
		Subsystem: "agent",
		Name:      "calls_total",
		Help:      "Count of canister calls sent through the agent gateway.",
	}, []string{"canister", "method", "kind", "status"})
	agentCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "icwallet",
		Subsystem: "agent",
		Name:      "call_duration_seconds",
		Help:      "Duration of canister calls sent through the agent gateway.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20},
	}, []string{"canister", "method", "kind", "status"})
)

// AgentClient tracks metrics for canister calls.
type AgentClient struct{}

// NewAgentClient constructs a metrics collector for canister calls.
func NewAgentClient() *AgentClient {
	return &AgentClient{}
}

// Observe records a single call outcome and duration. kind is "query" or "update".
func (m AgentClient) Observe(canister, method, kind string, err error, started time.Time) {
	if canister == "" {
		canister = "unknown"
	}
	status := statusOf(err)

	agentCallsTotal.WithLabelValues(canister, method, kind, status).Inc()
	agentCallDuration.WithLabelValues(canister, method, kind, status).Observe(time.Since(started).Seconds())
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
