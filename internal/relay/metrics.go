package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmapi",
			Subsystem: "relay",
			Name:      "generations_total",
			Help:      "Generation calls by mode (blocking, stream) and outcome (ok, error)",
		},
		[]string{"mode", "outcome"},
	)

	fragmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmapi",
			Subsystem: "relay",
			Name:      "stream_fragments_total",
			Help:      "Text fragments relayed to streaming clients",
		},
	)

	backendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llmapi",
			Subsystem: "relay",
			Name:      "backend_call_duration_seconds",
			Help:      "Duration of backend calls in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"op", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal, fragmentsTotal, backendDuration)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
