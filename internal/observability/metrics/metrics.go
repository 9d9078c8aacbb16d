package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClientMetrics exposes counters/histograms for calls to the assistant service
// and for booking outcomes.
type ClientMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	bookingsTotal   *prometheus.CounterVec
	supersededTotal prometheus.Counter
}

func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetbot",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total requests sent to the assistant service",
		}, []string{"operation", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vetbot",
			Subsystem: "client",
			Name:      "request_latency_seconds",
			Help:      "Latency of assistant service requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetbot",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Appointment submissions by outcome",
		}, []string{"outcome"}),
		supersededTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vetbot",
			Subsystem: "chat",
			Name:      "superseded_total",
			Help:      "Chat sends discarded because a newer send replaced them",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.bookingsTotal, m.supersededTotal)
	return m
}

// ObserveRequest records one outbound call. status is "ok", "error", "canceled"
// or an HTTP status code.
func (m *ClientMetrics) ObserveRequest(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, status).Inc()
	m.requestLatency.WithLabelValues(operation).Observe(seconds)
}

// ObserveBooking records a submission outcome: success, invalid, rejected, slot_taken.
func (m *ClientMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *ClientMetrics) ObserveSuperseded() {
	if m == nil {
		return
	}
	m.supersededTotal.Inc()
}
