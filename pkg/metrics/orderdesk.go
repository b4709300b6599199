package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderDeskMetrics records order form, settlement and backend activity.
type OrderDeskMetrics struct {
	transitions        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	submissions        *prometheus.CounterVec
	allocations        *prometheus.CounterVec
	backendDuration    *prometheus.HistogramVec
}

// NewOrderDeskMetrics registers the service metrics on the provided registerer.
func NewOrderDeskMetrics(reg prometheus.Registerer) *OrderDeskMetrics {
	if reg == nil {
		return &OrderDeskMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderform_transitions_total",
		Help: "Order form stage transitions by outcome.",
	}, []string{"order_type", "from", "to", "result"})
	validationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderform_validation_failures_total",
		Help: "Stock and balance validation failures that blocked a transition.",
	}, []string{"order_type", "kind"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderform_submissions_total",
		Help: "Order form submissions by outcome.",
	}, []string{"order_type", "result"})
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_allocations_total",
		Help: "Settlement allocations posted to the ledger backend.",
	}, []string{"result"})
	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Latency of ledger backend requests per attempt.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})
	reg.MustRegister(transitions, validationFailures, submissions, allocations, backendDuration)
	return &OrderDeskMetrics{
		transitions:        transitions,
		validationFailures: validationFailures,
		submissions:        submissions,
		allocations:        allocations,
		backendDuration:    backendDuration,
	}
}

// ObserveTransition counts a stage transition attempt.
func (m *OrderDeskMetrics) ObserveTransition(orderType, from, to, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(orderType), normalizeLabel(from), normalizeLabel(to), normalizeLabel(result)).Inc()
}

func (m *OrderDeskMetrics) IncValidationFailure(orderType, kind string) {
	if m == nil || m.validationFailures == nil {
		return
	}
	m.validationFailures.WithLabelValues(normalizeLabel(orderType), normalizeLabel(kind)).Inc()
}

func (m *OrderDeskMetrics) IncSubmission(orderType, result string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(orderType), normalizeLabel(result)).Inc()
}

func (m *OrderDeskMetrics) IncSettlementAllocation(result string) {
	if m == nil || m.allocations == nil {
		return
	}
	m.allocations.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveBackendRequest records one backend attempt.
func (m *OrderDeskMetrics) ObserveBackendRequest(operation, status string, elapsed time.Duration) {
	if m == nil || m.backendDuration == nil {
		return
	}
	m.backendDuration.WithLabelValues(normalizeLabel(operation), normalizeLabel(status)).Observe(elapsed.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
