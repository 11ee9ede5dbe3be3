package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	SessionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerava_arrival_sessions_created_total",
		Help: "Total arrival sessions created",
	}, []string{"arrival_type"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nerava_arrival_active_sessions",
		Help: "Number of non-terminal arrival sessions",
	})

	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nerava_arrival_sessions_expired_total",
		Help: "Total arrival sessions closed by the expiry sweeper",
	})

	ArrivalAccuracy = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nerava_arrival_confirm_distance_meters",
		Help:    "Distance from charger at arrival confirmation",
		Buckets: []float64{10, 25, 50, 100, 150, 200, 250, 350, 500},
	})

	BillingEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerava_billing_events_total",
		Help: "Total billing events recorded",
	}, []string{"source"})

	// Infrastructure metrics
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerava_merchant_notifications_total",
		Help: "Total merchant notifications dispatched",
	}, []string{"channel", "status"})

	DatabaseLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nerava_database_latency_seconds",
		Help:    "Database query latency",
		Buckets: prometheus.DefBuckets,
	})
)
