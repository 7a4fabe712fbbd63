// Package metrics exposes the Prometheus collectors of the lottery service
// and the echo middleware that feeds the HTTP ones.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "travel_lottery"

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
	}, []string{"method", "route"})

	ticketsSold = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "tickets_sold_total",
		Help:      "Tickets sold.",
	})

	purchasesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "purchases_rejected_total",
		Help:      "Ticket purchases rejected, by reason.",
	}, []string{"reason"})

	drawsExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "draw",
		Name:      "executed_total",
		Help:      "Draws executed, by trigger.",
	}, []string{"trigger"})

	codeCollisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "codegen",
		Name:      "collisions_total",
		Help:      "Generated codes rejected by a unique index and regenerated.",
	}, []string{"kind"})

	verifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "verify",
		Name:      "lookups_total",
		Help:      "Verification lookups, by method and result.",
	}, []string{"method", "result"})

	schedulerRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "runs_total",
		Help:      "Scheduled due-draw runs.",
	}, []string{"success"})

	eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Domain events handed to the broker, by queue and result.",
	}, []string{"queue", "result"})
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ticketsSold,
		purchasesRejected,
		drawsExecuted,
		codeCollisions,
		verifications,
		schedulerRuns,
		eventsPublished,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count, latency and in-flight requests.  The
// route label is echo's route template so that ids and codes do not blow up
// label cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}
			start := time.Now()
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := strings.ToUpper(c.Request().Method)
			httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RecordPurchase counts a committed ticket purchase.
func RecordPurchase() { ticketsSold.Inc() }

// RecordPurchaseRejected counts a failed purchase.
func RecordPurchaseRejected(reason string) { purchasesRejected.WithLabelValues(reason).Inc() }

// RecordDraw counts a committed draw.
func RecordDraw(system bool) {
	trigger := "operator"
	if system {
		trigger = "system"
	}
	drawsExecuted.WithLabelValues(trigger).Inc()
}

// RecordCodeCollision counts a regenerated code.
func RecordCodeCollision(kind string) { codeCollisions.WithLabelValues(kind).Inc() }

// RecordVerification counts a lookup by code or QR payload.
func RecordVerification(method string, ok bool) {
	result := "miss"
	if ok {
		result = "hit"
	}
	verifications.WithLabelValues(method, result).Inc()
}

// RecordSchedulerRun counts a scheduled due-draw run.
func RecordSchedulerRun(success bool) {
	schedulerRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordEvent counts an event as sent, failed or dropped.
func RecordEvent(queue, result string) {
	eventsPublished.WithLabelValues(queue, result).Inc()
}
