package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_sessions_active",
			Help: "Number of currently connected sessions",
		},
	)

	sessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_sessions_total",
			Help: "Total number of sessions accepted",
		},
	)

	sessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_sessions_evicted_total",
			Help: "Sessions replaced by a newer connection for the same user",
		},
	)

	broadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_presence_broadcasts_total",
			Help: "Presence broadcast cycles by outcome",
		},
		[]string{"status"}, // "success", "error" or "empty"
	)

	broadcastFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_presence_broadcast_fanout",
			Help:    "Sessions pushed to per presence broadcast cycle",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	eventsRoutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_events_routed_total",
			Help: "Events delivered to a live session",
		},
		[]string{"type"},
	)

	eventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_events_dropped_total",
			Help: "Events dropped because the target was offline or unreachable",
		},
		[]string{"type"},
	)

	deliveryReceiptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_delivery_receipts_total",
			Help: "message_delivered notifications sent to senders",
		},
	)

	groupFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_group_fanout",
			Help:    "Sessions reached per group channel broadcast",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)
)
