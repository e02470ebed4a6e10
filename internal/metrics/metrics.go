// Package metrics exposes Prometheus metrics for the planner. Domain events
// are counted by a bus consumer; HTTP and session gauges are set directly.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfperdi/parishliturgyplanner/internal/event"
)

var (
	namespace = "liturgy"
	subsystem = "planner"

	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_total",
			Help:      "Domain events by type and category",
		},
		[]string{"event_type", "category"},
	)

	eventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_dropped_total",
			Help:      "Domain events dropped on a full event bus buffer",
		},
	)

	stepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "step_transitions_total",
			Help:      "Workflow step status transitions by step and target status",
		},
		[]string{"step", "status"},
	)

	approvalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "approval_decisions_total",
			Help:      "Approval decisions by kind; bulk approvals count each approved item",
		},
		[]string{"decision"},
	)

	pendingApprovals = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pending_approvals",
			Help:      "Pending approvals seen at the last fetch per period",
		},
		[]string{"period"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions",
			Help:      "Live operator sessions",
		},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern, method and status",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler { return promhttp.Handler() }

// EventDropped counts one event lost on a full bus buffer.
func EventDropped(event.DomainEvent) { eventsDropped.Inc() }

// SetSessions records the number of live sessions.
func SetSessions(n int) { activeSessions.Set(float64(n)) }

// ObserveRequest records the latency of one HTTP request.
func ObserveRequest(route, method string, status int, d time.Duration) {
	requestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// Consumer counts domain events. It is subscribed to the event bus.
type Consumer struct{}

func NewConsumer() *Consumer { return &Consumer{} }

func (c *Consumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	eventsTotal.WithLabelValues(evt.EventType, evt.Category).Inc()

	switch evt.EventType {
	case event.TypeStepStatusChanged:
		var p event.StepStatusPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return err
		}
		stepTransitions.WithLabelValues(strconv.Itoa(p.Step), p.To).Inc()
	case event.TypeApprovalsFetched:
		var p event.ApprovalsFetchedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return err
		}
		pendingApprovals.WithLabelValues(p.Period).Set(float64(p.Pending))
	case event.TypeApprovalDecided:
		var p event.ApprovalDecidedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return err
		}
		n := 1
		if p.Decision == "bulk_approved" {
			n = p.Count
		}
		approvalDecisions.WithLabelValues(p.Decision).Add(float64(n))
	}
	return nil
}
