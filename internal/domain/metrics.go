package domain

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	fetchFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapshot_service",
		Subsystem: "aggregator",
		Name:      "metric_fetch_failures_total",
		Help:      "Number of per-metric fetch failures absorbed by the aggregator.",
	}, []string{"metric"})

	aggregationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "snapshot_service",
		Subsystem: "aggregator",
		Name:      "aggregation_duration_seconds",
		Help:      "Wall time of one full snapshot aggregation run.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(fetchFailureCounter, aggregationDuration)
}

func recordFetchFailure(metric string) {
	fetchFailureCounter.WithLabelValues(metric).Inc()
}

func observeAggregation(d time.Duration) {
	aggregationDuration.Observe(d.Seconds())
}
