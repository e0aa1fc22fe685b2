package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsyncer_sync_total",
		Help: "Feed synchronizations by result (synced, skipped, failed)",
	}, []string{"result"})

	EntriesInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedsyncer_entries_inserted_total",
		Help: "Entries added to the catalog by registration or synchronization",
	})

	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsyncer_registrations_total",
		Help: "Feed registrations by result (ok, rejected, failed)",
	}, []string{"result"})

	PublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedsyncer_publish_errors_total",
		Help: "Catalog events that could not be published",
	})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedsyncer_sync_duration_seconds",
		Help:    "Duration of a single feed synchronization",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedsyncer_tick_duration_seconds",
		Help:    "Duration of a full pass over every feed",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)
