package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	AssistQueriesTotal       metric.Int64Counter
	AssistDurationSeconds    metric.Float64Histogram
	UpstreamCallDurationSecs metric.Float64Histogram
	UpstreamCallErrorsTotal  metric.Int64Counter
	GenerationFallbacksTotal metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("SafeAssist")
		var err error
		m := &AppMetrics{}

		m.AssistQueriesTotal, err = meter.Int64Counter(
			"assist_queries_total",
			metric.WithDescription("Total number of assistant queries completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create assist_queries_total: %v", err)
		}

		m.AssistDurationSeconds, err = meter.Float64Histogram(
			"assist_duration_seconds",
			metric.WithDescription("Duration of assistant queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create assist_duration_seconds: %v", err)
		}

		m.UpstreamCallDurationSecs, err = meter.Float64Histogram(
			"upstream_call_duration_seconds",
			metric.WithDescription("Duration of upstream provider calls in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create upstream_call_duration_seconds: %v", err)
		}

		m.UpstreamCallErrorsTotal, err = meter.Int64Counter(
			"upstream_call_errors_total",
			metric.WithDescription("Total number of failed upstream provider calls"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create upstream_call_errors_total: %v", err)
		}

		m.GenerationFallbacksTotal, err = meter.Int64Counter(
			"generation_fallbacks_total",
			metric.WithDescription("Replies served from the deterministic fallback strings"),
			metric.WithUnit("{reply}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create generation_fallbacks_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
