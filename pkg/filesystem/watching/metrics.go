package watching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// discardReasonPaused labels events dropped while a session is paused.
	discardReasonPaused = "paused"
	// discardReasonIgnored labels events excluded by the ignore list.
	discardReasonIgnored = "ignored"
	// discardReasonStale labels records for retired or unknown handles.
	discardReasonStale = "stale"
	// discardReasonUnclassified labels records with no recognized event bits.
	discardReasonUnclassified = "unclassified"
	// discardReasonDuplicate labels kernel creations that were already
	// reported synthetically.
	discardReasonDuplicate = "duplicate"
	// discardReasonNonRoot labels watch invalidations for non-root
	// directories.
	discardReasonNonRoot = "non_root"

	// sessionResultStarted labels successfully started sessions.
	sessionResultStarted = "started"
	// sessionResultFailed labels sessions that failed to start.
	sessionResultFailed = "failed"
)

var (
	metricEventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treewatch",
		Subsystem: "watching",
		Name:      "events_delivered_total",
		Help:      "Total number of notifications delivered, per notification code",
	}, []string{"code"})
	metricEventsDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treewatch",
		Subsystem: "watching",
		Name:      "events_discarded_total",
		Help:      "Total number of events discarded before delivery, per reason",
	}, []string{"reason"})
	metricOverflows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "treewatch",
		Subsystem: "watching",
		Name:      "overflows_total",
		Help:      "Total number of event queue overflows",
	})
	metricWatchesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "treewatch",
		Subsystem: "watching",
		Name:      "watches_active",
		Help:      "Current number of registered directory watches",
	})
	metricSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treewatch",
		Subsystem: "watching",
		Name:      "sessions_total",
		Help:      "Total number of watch session start attempts, per result",
	}, []string{"result"})
)
