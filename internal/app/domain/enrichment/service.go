package enrichment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-fishspots/internal/app/models"
	"github.com/FACorreiaa/go-fishspots/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-fishspots/internal/pkg/cache"
)

var _ Service = (*ServiceImpl)(nil)

// forecastOffsets pick roughly +24h, +48h and +72h out of the 3-hourly forecast.
var forecastOffsets = []int{8, 16, 24}

const damsCacheKey = "water:dams"

type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) (CurrentWeather, error)
	Forecast(ctx context.Context, lat, lon float64) ([]models.ForecastEntry, error)
}

type WaterSource interface {
	Dams(ctx context.Context) ([]models.DamReading, error)
}

type Options struct {
	WeatherTTL     time.Duration
	WaterTTL       time.Duration
	NegativeTTL    time.Duration
	CoordPrecision int
	Concurrency    int
}

// Service annotates spots with weather and water readings. Lookups never fail;
// upstream problems come back as sentinel values.
type Service interface {
	GetWeather(ctx context.Context, lat, lon float64) models.WeatherReport
	GetWaterLevel(ctx context.Context, name string) models.WaterReport
	Enrich(ctx context.Context, coords models.Coordinates, name string) models.EnrichmentRecord
	EnrichSpots(ctx context.Context, spots []models.Spot) map[uuid.UUID]models.EnrichmentRecord
}

type ServiceImpl struct {
	logger  *zap.Logger
	weather WeatherSource
	water   WaterSource
	store   cache.Store
	opts    Options
	flight  singleflight.Group
}

func NewService(weather WeatherSource, water WaterSource, store cache.Store, opts Options, logger *zap.Logger) *ServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WeatherTTL <= 0 {
		opts.WeatherTTL = 30 * time.Minute
	}
	if opts.WaterTTL <= 0 {
		opts.WaterTTL = 60 * time.Minute
	}
	if opts.NegativeTTL <= 0 {
		opts.NegativeTTL = time.Minute
	}
	if opts.CoordPrecision <= 0 {
		opts.CoordPrecision = 4
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &ServiceImpl{
		logger:  logger,
		weather: weather,
		water:   water,
		store:   store,
		opts:    opts,
	}
}

// GetWeather returns current conditions and up to three daily forecast points.
func (s *ServiceImpl) GetWeather(ctx context.Context, lat, lon float64) models.WeatherReport {
	ctx, span := otel.Tracer("EnrichmentService").Start(ctx, "GetWeather", trace.WithAttributes(
		attribute.Float64("lat", lat),
		attribute.Float64("lon", lon),
	))
	defer span.End()

	// A cancelled caller belongs to a superseded pass; nothing it sees is cached.
	if ctx.Err() != nil {
		return unavailableWeather()
	}

	key := s.weatherKey(lat, lon)
	var report models.WeatherReport
	if s.lookup(ctx, "weather", key, &report) {
		return report
	}

	// The shared fetch outlives any single waiter; the client timeout still bounds it.
	fctx := context.WithoutCancel(ctx)
	v, _, _ := s.flight.Do(key, func() (any, error) {
		report, complete := s.fetchWeather(fctx, lat, lon)
		s.remember(fctx, key, report, !complete, s.opts.WeatherTTL)
		return report, nil
	})
	report = v.(models.WeatherReport)
	span.SetAttributes(attribute.String("status", string(report.Status)))
	return report
}

func unavailableWeather() models.WeatherReport {
	return models.WeatherReport{
		Current:  models.SentinelUnavailable,
		Forecast: []models.ForecastEntry{},
		Status:   models.EnrichmentUnavailable,
	}
}

// fetchWeather reports complete=false when any upstream call failed. A failed
// forecast keeps the current conditions with an empty forecast.
func (s *ServiceImpl) fetchWeather(ctx context.Context, lat, lon float64) (models.WeatherReport, bool) {
	if s.weather == nil {
		return unavailableWeather(), false
	}

	current, err := s.weather.Current(ctx, lat, lon)
	s.countRequest(ctx, "weather", err)
	if err != nil {
		s.logger.Warn("Weather lookup failed", zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return unavailableWeather(), false
	}

	report := models.WeatherReport{
		Current:  formatCurrent(current),
		Forecast: []models.ForecastEntry{},
		Status:   models.EnrichmentOK,
	}
	forecast, err := s.weather.Forecast(ctx, lat, lon)
	s.countRequest(ctx, "forecast", err)
	if err != nil {
		s.logger.Warn("Forecast lookup failed", zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return report, false
	}
	report.Forecast = pickForecast(forecast)
	return report, true
}

// GetWaterLevel returns the storage percentage of the first reservoir whose
// localized name contains name.
func (s *ServiceImpl) GetWaterLevel(ctx context.Context, name string) models.WaterReport {
	ctx, span := otel.Tracer("EnrichmentService").Start(ctx, "GetWaterLevel", trace.WithAttributes(
		attribute.String("name", name),
	))
	defer span.End()

	unavailable := models.WaterReport{Level: models.SentinelUnavailable, Status: models.EnrichmentUnavailable}
	if ctx.Err() != nil {
		return unavailable
	}

	key := cache.Key("water", name)
	var report models.WaterReport
	if s.lookup(ctx, "water", key, &report) {
		return report
	}

	dams, err := s.dams(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.remember(ctx, key, unavailable, true, s.opts.WaterTTL)
		}
		return unavailable
	}

	report = matchDam(dams, name)
	s.remember(ctx, key, report, false, s.opts.WaterTTL)
	span.SetAttributes(attribute.String("status", string(report.Status)))
	return report
}

// dams returns the memoized reservoir list, fetching it at most once at a time.
func (s *ServiceImpl) dams(ctx context.Context) ([]models.DamReading, error) {
	var dams []models.DamReading
	if s.lookup(ctx, "dams", damsCacheKey, &dams) {
		return dams, nil
	}
	if s.water == nil {
		return nil, fmt.Errorf("%w: water source not configured", models.ErrUnavailable)
	}

	fctx := context.WithoutCancel(ctx)
	v, err, _ := s.flight.Do(damsCacheKey, func() (any, error) {
		dams, err := s.water.Dams(fctx)
		s.countRequest(fctx, "water", err)
		if err != nil {
			s.logger.Warn("Water level lookup failed", zap.Error(err))
			return nil, err
		}
		if serr := s.store.Set(fctx, damsCacheKey, dams, s.opts.WaterTTL); serr != nil {
			s.logger.Warn("Failed to cache dam list", zap.Error(serr))
		}
		return dams, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.DamReading), nil
}

// Enrich looks up weather and water for one place concurrently.
func (s *ServiceImpl) Enrich(ctx context.Context, coords models.Coordinates, name string) models.EnrichmentRecord {
	var (
		rec models.EnrichmentRecord
		wg  sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		rec.Weather = s.GetWeather(ctx, coords.Latitude, coords.Longitude)
	}()
	go func() {
		defer wg.Done()
		rec.Water = s.GetWaterLevel(ctx, name)
	}()
	wg.Wait()
	return rec
}

// EnrichSpots annotates every spot in parallel, bounded by the configured
// concurrency. Results are keyed by spot id regardless of completion order.
func (s *ServiceImpl) EnrichSpots(ctx context.Context, spots []models.Spot) map[uuid.UUID]models.EnrichmentRecord {
	ctx, span := otel.Tracer("EnrichmentService").Start(ctx, "EnrichSpots", trace.WithAttributes(
		attribute.Int("spots.count", len(spots)),
	))
	defer span.End()

	var (
		mu     sync.Mutex
		g      errgroup.Group
		result = make(map[uuid.UUID]models.EnrichmentRecord, len(spots))
	)
	g.SetLimit(s.opts.Concurrency)
	for _, spot := range spots {
		g.Go(func() error {
			rec := s.Enrich(ctx, spot.Coordinates, spot.Name)
			mu.Lock()
			result[spot.ID] = rec
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return result
}

// lookup reads key from the store, counting hits and misses. Store errors count as misses.
func (s *ServiceImpl) lookup(ctx context.Context, source, key string, dest any) bool {
	found, err := s.store.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("Enrichment cache read failed", zap.String("key", key), zap.Error(err))
		found = false
	}
	attrs := metric.WithAttributes(attribute.String("source", source))
	if found {
		metrics.Get().EnrichmentCacheHits.Add(ctx, 1, attrs)
	} else {
		metrics.Get().EnrichmentCacheMisses.Add(ctx, 1, attrs)
	}
	return found
}

// remember caches value for ttl, or for the short negative TTL when it records a failure.
func (s *ServiceImpl) remember(ctx context.Context, key string, value any, failed bool, ttl time.Duration) {
	if failed {
		ttl = s.opts.NegativeTTL
	}
	if err := s.store.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("Enrichment cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *ServiceImpl) countRequest(ctx context.Context, source string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			status = "timeout"
		}
	}
	metrics.Get().EnrichmentRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	))
}

func (s *ServiceImpl) weatherKey(lat, lon float64) string {
	p := s.opts.CoordPrecision
	return cache.Key("weather", formatRounded(lat, p), formatRounded(lon, p))
}

func formatRounded(v float64, precision int) string {
	scale := math.Pow(10, float64(precision))
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0 // normalizes -0
	}
	return strconv.FormatFloat(r, 'f', precision, 64)
}

func formatCurrent(c CurrentWeather) string {
	temp := strconv.FormatFloat(c.Temp, 'f', -1, 64) + "°C"
	if c.Description == "" {
		return temp
	}
	return temp + ", " + c.Description
}

func pickForecast(entries []models.ForecastEntry) []models.ForecastEntry {
	picked := make([]models.ForecastEntry, 0, len(forecastOffsets))
	for _, i := range forecastOffsets {
		if i < len(entries) {
			picked = append(picked, entries[i])
		}
	}
	return picked
}

func matchDam(dams []models.DamReading, name string) models.WaterReport {
	if name == "" {
		return models.WaterReport{Level: models.SentinelNoData, Status: models.EnrichmentNoData}
	}
	for _, d := range dams {
		if !strings.Contains(d.Name, name) {
			continue
		}
		if d.StoragePercent == "" {
			break
		}
		return models.WaterReport{Level: d.StoragePercent + "%", Status: models.EnrichmentOK}
	}
	return models.WaterReport{Level: models.SentinelNoData, Status: models.EnrichmentNoData}
}
