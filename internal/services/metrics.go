package services

import "github.com/prometheus/client_golang/prometheus"

// Event outcomes.
const (
	outcomeOK         = "ok"
	outcomeApologized = "apologized"
	outcomeDropped    = "dropped"
	outcomeIgnored    = "ignored"
)

var (
	// eventsTotal counts handled webhook events by kind and outcome.
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caloriebot_events_total",
			Help: "Webhook events handled, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// modelLatency records generative model latency by response mode
	// (json or text), including failed calls.
	modelLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caloriebot_model_request_duration_seconds",
			Help:    "Duration of generative model requests in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(eventsTotal, modelLatency)
}
