// Package metrics exposes Prometheus counters for the booking and payment
// flows.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters observed by the domain services. A nil
// *Metrics is safe to call, so tests and tools can skip registration.
type Metrics struct {
	bookingsTotal      *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	paymentsTotal      *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docverse",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking and reschedule attempts by outcome",
		}, []string{"op", "outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docverse",
			Subsystem: "appointment",
			Name:      "transitions_total",
			Help:      "Appointment status transitions by target and outcome",
		}, []string{"to", "outcome"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docverse",
			Subsystem: "payment",
			Name:      "operations_total",
			Help:      "Payment ledger and audit operations by outcome",
		}, []string{"op", "outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docverse",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Notification deliveries by status",
		}, []string{"status"}),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.transitionsTotal, m.paymentsTotal, m.notificationsTotal)
	return m
}

func (m *Metrics) ObserveBooking(op, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveTransition(to, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(to, outcome).Inc()
}

func (m *Metrics) ObservePayment(op, outcome string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveNotification(status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(status).Inc()
}
