package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendRequests counts calls to the attendance backend by endpoint and outcome
	// (ok, auth_expired, status_error, network_error, no_session).
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boostify",
		Subsystem: "backend",
		Name:      "requests_total",
		Help:      "Attendance backend requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// BackendLatency observes backend round-trip time.
	BackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "boostify",
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Attendance backend request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	// SessionEvents counts session lifecycle transitions
	// (login, logout, expired, migrated, validate_error).
	SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boostify",
		Subsystem: "session",
		Name:      "events_total",
		Help:      "Session lifecycle events.",
	}, []string{"event"})

	// LogoutNotifications counts best-effort backend logout deliveries.
	LogoutNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boostify",
		Subsystem: "session",
		Name:      "logout_notifications_total",
		Help:      "Backend logout notifications by result.",
	}, []string{"result"})
)
