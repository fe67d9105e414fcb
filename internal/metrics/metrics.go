package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var LLMLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "hotel",
		Subsystem: "concierge",
		Name:      "llm_latency_seconds",
		Help:      "Latency of hosted model calls",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10, 15, 20, 30},
	},
	[]string{"operation", "status"},
)

var LLMTokens = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hotel",
		Subsystem: "concierge",
		Name:      "llm_tokens_total",
		Help:      "Tokens used by completion calls",
	},
	[]string{"operation", "type"}, // type: input, output
)

var EmbeddingRetries = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "hotel",
		Subsystem: "concierge",
		Name:      "embedding_retries_total",
		Help:      "Embedding calls retried after a transient failure",
	},
)

var IntentsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hotel",
		Subsystem: "concierge",
		Name:      "intents_total",
		Help:      "Classified intents",
	},
	[]string{"intent"},
)

var RoutesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hotel",
		Subsystem: "concierge",
		Name:      "routes_total",
		Help:      "Turns handled per strategy",
	},
	[]string{"route"},
)

var BookingTurns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hotel",
		Subsystem: "concierge",
		Name:      "booking_turns_total",
		Help:      "Booking dialog turns by outcome",
	},
	[]string{"outcome"}, // outcome: collecting, complete, error, cancelled
)

var TurnLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "hotel",
		Subsystem: "concierge",
		Name:      "turn_latency_seconds",
		Help:      "End-to-end latency of a chat turn",
		Buckets:   prometheus.DefBuckets,
	},
)

func init() {
	prometheus.MustRegister(LLMLatency)
	prometheus.MustRegister(LLMTokens)
	prometheus.MustRegister(EmbeddingRetries)
	prometheus.MustRegister(IntentsTotal)
	prometheus.MustRegister(RoutesTotal)
	prometheus.MustRegister(BookingTurns)
	prometheus.MustRegister(TurnLatency)
}

// ObserveLLM records one hosted-model call.
func ObserveLLM(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	LLMLatency.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

func AddTokens(operation string, input, output int) {
	if input > 0 {
		LLMTokens.WithLabelValues(operation, "input").Add(float64(input))
	}
	if output > 0 {
		LLMTokens.WithLabelValues(operation, "output").Add(float64(output))
	}
}
