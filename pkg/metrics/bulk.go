package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BulkOperationMetrics tracks fan-out batches and their per-item outcomes.
type BulkOperationMetrics struct {
	duration *prometheus.HistogramVec
	items    *prometheus.CounterVec
}

// NewBulkOperationMetrics registers the bulk metrics on the provided registerer.
func NewBulkOperationMetrics(reg prometheus.Registerer) *BulkOperationMetrics {
	if reg == nil {
		return &BulkOperationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shopfloor",
		Name:      "bulk_operation_duration_seconds",
		Help:      "Duration of bulk order operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopfloor",
		Name:      "bulk_operation_items_total",
		Help:      "Per-item outcomes of bulk order operations.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(duration, items)
	return &BulkOperationMetrics{duration: duration, items: items}
}

// ObserveDuration records how long the whole batch took.
func (b *BulkOperationMetrics) ObserveDuration(operation string, duration time.Duration) {
	if b == nil || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// AddItems records item counts for an outcome ("succeeded" or "failed").
func (b *BulkOperationMetrics) AddItems(operation, outcome string, count int) {
	if b == nil || b.items == nil || count <= 0 {
		return
	}
	b.items.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Add(float64(count))
}
