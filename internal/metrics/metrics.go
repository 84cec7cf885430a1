// Package metrics exposes Prometheus counters for the sync pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry         *prometheus.Registry
	savesTotal       *prometheus.CounterVec
	saveDuration     prometheus.Histogram
	recordsAttempted prometheus.Counter
	recordsSaved     prometheus.Counter
	snapshotsTotal   prometheus.Counter
	uploadBatchSize  prometheus.Histogram
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	return &Collector{
		registry: registry,
		savesTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "gptracker_saves_total",
			Help: "Cloud save operations by outcome",
		}, []string{"outcome"}),
		saveDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "gptracker_save_duration_seconds",
			Help:    "Time taken by a full cloud save",
			Buckets: prometheus.DefBuckets,
		}),
		recordsAttempted: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "gptracker_upload_records_attempted_total",
			Help: "Bank records handed to the batch uploader",
		}),
		recordsSaved: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "gptracker_upload_records_saved_total",
			Help: "Bank records confirmed by the remote store",
		}),
		snapshotsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "gptracker_snapshots_total",
			Help: "Snapshots created",
		}),
		uploadBatchSize: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "gptracker_upload_batch_size",
			Help:    "Distribution of uploaded batch sizes",
			Buckets: []float64{1, 15, 75, 150, 500, 1000},
		}),
	}
}

// RecordSave tracks one save operation end to end.
func (c *Collector) RecordSave(duration time.Duration, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.savesTotal.WithLabelValues(outcome).Inc()
	c.saveDuration.Observe(duration.Seconds())
}

// RecordUpload tracks attempted vs confirmed records for one upload run.
func (c *Collector) RecordUpload(attempted, saved int) {
	c.recordsAttempted.Add(float64(attempted))
	c.recordsSaved.Add(float64(saved))
	c.uploadBatchSize.Observe(float64(attempted))
}

// RecordSnapshot counts a created snapshot.
func (c *Collector) RecordSnapshot() {
	c.snapshotsTotal.Inc()
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
