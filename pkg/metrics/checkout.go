package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts order lifecycle outcomes.
type CheckoutMetrics struct {
	placed    prometheus.Counter
	delivered prometheus.Counter
	failures  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders successfully placed.",
	})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_delivered_total",
		Help: "Orders confirmed as delivered.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Failed checkout attempts by reason.",
	}, []string{"reason"})
	reg.MustRegister(placed, delivered, failures)
	return &CheckoutMetrics{
		placed:    placed,
		delivered: delivered,
		failures:  failures,
	}
}

// IncPlaced increments the placed order counter.
func (c *CheckoutMetrics) IncPlaced() {
	if c == nil || c.placed == nil {
		return
	}
	c.placed.Inc()
}

// IncDelivered increments the delivered order counter.
func (c *CheckoutMetrics) IncDelivered() {
	if c == nil || c.delivered == nil {
		return
	}
	c.delivered.Inc()
}

// IncFailure increments the failure counter for the given reason.
func (c *CheckoutMetrics) IncFailure(reason string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(reason)).Inc()
}
