package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal       metric.Int64Counter
	HTTPRequestDuration     metric.Float64Histogram
	SpotReportsTotal        metric.Int64Counter
	SpotWriteRetriesTotal   metric.Int64Counter
	ImageUploadsTotal       metric.Int64Counter
	EnrichmentRequestsTotal metric.Int64Counter
	EnrichmentCacheHits     metric.Int64Counter
	EnrichmentCacheMisses   metric.Int64Counter
	MapRenderDuration       metric.Float64Histogram
	MapRendersSuperseded    metric.Int64Counter
	ActiveSessionsGauge     metric.Int64Gauge
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the metric instruments once, from the global MeterProvider.
// Calling it before the provider is configured yields no-op instruments.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("fishspots")
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.SpotReportsTotal, err = meter.Int64Counter(
			"spot_reports_total",
			metric.WithDescription("Spot reports saved, by merge action"),
			metric.WithUnit("{report}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create spot_reports_total: %v", err)
		}

		m.SpotWriteRetriesTotal, err = meter.Int64Counter(
			"spot_write_retries_total",
			metric.WithDescription("Retries of spot table writes after transient errors"),
			metric.WithUnit("{retry}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create spot_write_retries_total: %v", err)
		}

		m.ImageUploadsTotal, err = meter.Int64Counter(
			"image_uploads_total",
			metric.WithDescription("Image uploads attempted, by result"),
			metric.WithUnit("{file}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create image_uploads_total: %v", err)
		}

		m.EnrichmentRequestsTotal, err = meter.Int64Counter(
			"enrichment_requests_total",
			metric.WithDescription("Outbound weather/water requests, by source and status"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create enrichment_requests_total: %v", err)
		}

		m.EnrichmentCacheHits, err = meter.Int64Counter(
			"enrichment_cache_hits_total",
			metric.WithDescription("Enrichment lookups served from cache"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create enrichment_cache_hits_total: %v", err)
		}

		m.EnrichmentCacheMisses, err = meter.Int64Counter(
			"enrichment_cache_misses_total",
			metric.WithDescription("Enrichment lookups that required an upstream call"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create enrichment_cache_misses_total: %v", err)
		}

		m.MapRenderDuration, err = meter.Float64Histogram(
			"map_render_duration_seconds",
			metric.WithDescription("Duration of map payload renders in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create map_render_duration_seconds: %v", err)
		}

		m.MapRendersSuperseded, err = meter.Int64Counter(
			"map_renders_superseded_total",
			metric.WithDescription("Map renders discarded because a newer pass started"),
			metric.WithUnit("{render}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create map_renders_superseded_total: %v", err)
		}

		m.ActiveSessionsGauge, err = meter.Int64Gauge(
			"active_sessions_current",
			metric.WithDescription("Current number of map sessions held in memory"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create active_sessions_current: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the AppMetrics instance, initializing it on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
