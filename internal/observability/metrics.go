// Package observability exposes service-level Prometheus metrics shared
// across packages.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var lastSnapshotGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "snapshot_service",
	Subsystem: "api",
	Name:      "last_snapshot_timestamp_seconds",
	Help:      "Unix timestamp of the most recent snapshot served.",
})

func init() {
	prometheus.MustRegister(lastSnapshotGauge)
}

// RecordSnapshotBuilt updates the snapshot watermark gauge.
func RecordSnapshotBuilt(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSnapshotGauge.Set(float64(ts.Unix()))
}
