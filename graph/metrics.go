package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ingestOrganizations counts organizations touched by ingestion.
	// Labels: outcome (created, reused)
	ingestOrganizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orggraph",
		Subsystem: "ingest",
		Name:      "organizations_total",
		Help:      "Organizations created or reused by ingestion",
	}, []string{"outcome"})

	// ingestEdges counts edge decisions made by ingestion.
	// Labels: outcome (created, duplicate, self, cycle)
	ingestEdges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orggraph",
		Subsystem: "ingest",
		Name:      "edges_total",
		Help:      "Edges created or skipped by ingestion",
	}, []string{"outcome"})

	// operationDuration measures graph operations end to end.
	// Labels: op (relations, forest, ingest)
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orggraph",
		Name:      "operation_duration_seconds",
		Help:      "Latency of graph operations in seconds",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"op"})
)

func observe(op string, start time.Time) {
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
