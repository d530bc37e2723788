package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brooder_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brooder_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "brooder_http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// OrdersPlaced counts successful reservations by breed
	OrdersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brooder_orders_placed_total",
			Help: "Successful order placements",
		},
		[]string{"breed"},
	)

	// ReservationConflicts counts decrements lost to a concurrent writer
	ReservationConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brooder_reservation_conflicts_total",
			Help: "Reservations rejected after losing a concurrent race",
		},
	)

	// GuardRejections counts phone guard denials by reason
	GuardRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brooder_guard_rejections_total",
			Help: "Order attempts rejected by the phone guard",
		},
		[]string{"reason"},
	)
)

// Metrics returns a Fiber middleware that records request metrics. The
// matched route template keeps label cardinality bounded.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(c.Response().StatusCode()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}
