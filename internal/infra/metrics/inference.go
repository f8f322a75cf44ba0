package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(inferenceLatency, inferenceInFlight) }

var inferenceLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inference_duration_seconds",
		Help:      "Wall time of external inference processes.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	},
	[]string{"model", "success"},
)

var inferenceInFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inference_in_flight",
		Help:      "Number of inference processes currently running.",
	},
)

func ObserveInference(model string, d time.Duration, success bool) {
	inferenceLatency.WithLabelValues(norm(model), strconv.FormatBool(success)).Observe(d.Seconds())
}

func InferenceStarted()  { inferenceInFlight.Inc() }
func InferenceFinished() { inferenceInFlight.Dec() }
