package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(sweptArtifactsTotal) }

var sweptArtifactsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retention_swept_total",
		Help:      "Artifacts and ledger rows removed by the retention sweeper.",
	},
	[]string{"kind"}, // 'files', 'jobs'
)

func AddSwept(kind string, n int) {
	sweptArtifactsTotal.WithLabelValues(norm(kind)).Add(float64(n))
}
