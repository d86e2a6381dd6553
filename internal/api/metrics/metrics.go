// Package metrics defines and registers all custom Prometheus metrics for the
// access API. It is the single source of truth for metric names, labels, and
// help strings. HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "access"

// ── Transition metrics ────────────────────────────────────────────────────────

// TransitionsTotal counts approval transition attempts.
// Labels:
//   - kind: the transition kind (e.g. "approve", "reject_admin")
//   - result: "applied", "noop", "forbidden", "invalid_transition", "not_found" or "error"
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of approval transitions, by kind and result.",
	},
	[]string{"kind", "result"},
)

// ProjectionDuration measures how long building a dashboard view takes.
// Label:
//   - viewer: the viewer role ("admin" or "superadmin")
var ProjectionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dashboard_projection_duration_seconds",
		Help:      "Duration of loading and projecting the user snapshot for a dashboard.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"viewer"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts created accounts.
// Label:
//   - admin_requested: "true" when the account filed an admin request at signup
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registered accounts.",
	},
	[]string{"admin_requested"},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts per-notifier delivery attempts.
// Label:
//   - result: "delivered" or "error"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of transition notification deliveries, by result.",
	},
	[]string{"result"},
)

// NotificationsDroppedTotal counts events dropped because a worker was saturated.
var NotificationsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dropped_total",
		Help:      "Total number of transition notifications dropped on a full queue.",
	},
)

// NotificationQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
