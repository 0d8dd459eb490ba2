package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AdviceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "krishi_advice_duration_seconds",
			Help:    "Advice request processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"intent"},
	)

	AdviceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krishi_advice_total",
			Help: "Total advice requests processed",
		},
		[]string{"intent", "status"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krishi_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	WeatherFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krishi_weather_fetch_total",
			Help: "Weather forecast lookups by outcome",
		},
		[]string{"outcome"},
	)

	ProfileSaveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krishi_profile_save_total",
			Help: "Profile table writes by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		AdviceDuration,
		AdviceTotal,
		LLMTokensUsed,
		WeatherFetchTotal,
		ProfileSaveTotal,
	)
}

// Handler exposes the Prometheus registry as a Fiber handler.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
