package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kubegraph_cycle_duration_seconds",
			Help:    "Time taken by a full collection cycle across all cluster contexts",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubegraph_cycles_total",
			Help: "Total number of collection cycles",
		},
		[]string{"status"}, // ok or failed
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kubegraph_stage_duration_seconds",
			Help:    "Time taken by individual pipeline stages per cluster context",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"context", "stage"}, // collect, build, sync
	)

	clusterSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubegraph_cluster_syncs_total",
			Help: "Total number of per-cluster pipeline runs",
		},
		[]string{"context", "status"}, // ok or failed
	)

	syncedEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kubegraph_synced_entities",
			Help: "Entities written by the most recent sync per cluster context",
		},
		[]string{"context"},
	)

	droppedEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kubegraph_dropped_entities",
			Help: "Entities dropped from the most recent snapshot per cluster context",
		},
		[]string{"context"},
	)
)
