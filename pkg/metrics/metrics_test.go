package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("POST", "/api/v1/checkout", "201", 120*time.Millisecond)
	m.ObserveRequest("POST", "/api/v1/checkout", "409", 40*time.Millisecond)

	count := testutil.CollectAndCount(m.requests, "http_requests_total")
	if count != 2 {
		t.Fatalf("expected 2 labelled series, got %d", count)
	}
}

func TestCheckoutMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.IncPlaced()
	m.IncPlaced()
	m.IncDelivered()
	m.IncFailure("out_of_stock")

	if got := testutil.ToFloat64(m.placed); got != 2 {
		t.Fatalf("expected 2 placed, got %v", got)
	}
	if got := testutil.ToFloat64(m.delivered); got != 1 {
		t.Fatalf("expected 1 delivered, got %v", got)
	}
}

func TestNilReceiversAreSafe(t *testing.T) {
	var h *HTTPMetrics
	h.ObserveRequest("GET", "/", "200", time.Millisecond)

	var c *CheckoutMetrics
	c.IncPlaced()
	c.IncDelivered()
	c.IncFailure("any")

	unregistered := NewHTTPMetrics(nil)
	unregistered.ObserveRequest("GET", "/", "200", time.Millisecond)
}
