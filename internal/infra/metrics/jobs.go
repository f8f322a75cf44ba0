package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, uploadBytes) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detection_jobs_processed_total",
		Help:      "Total number of detection jobs processed, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var uploadBytes = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_size_bytes",
		Help:      "Size distribution of persisted uploads.",
		Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 8), // 16KiB .. 256MiB
	},
	[]string{"kind"},
)

func IncJob(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveUpload(kind string, size int64) {
	uploadBytes.WithLabelValues(norm(kind)).Observe(float64(size))
}
