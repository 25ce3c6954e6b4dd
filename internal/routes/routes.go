package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/domain"
	"github.com/FACorreiaa/go-fishspots/internal/app/domain/enrichment"
	"github.com/FACorreiaa/go-fishspots/internal/app/domain/mapview"
	"github.com/FACorreiaa/go-fishspots/internal/app/domain/spots"
	"github.com/FACorreiaa/go-fishspots/internal/app/domain/storage"
	"github.com/FACorreiaa/go-fishspots/internal/app/domain/viewstate"
	"github.com/FACorreiaa/go-fishspots/internal/app/middleware"
	"github.com/FACorreiaa/go-fishspots/internal/app/models"
	"github.com/FACorreiaa/go-fishspots/internal/pkg/cache"
	"github.com/FACorreiaa/go-fishspots/internal/pkg/config"
)

// Dependencies are the process-level resources the routes are built from.
// Redis is optional; without it enrichment results are cached in memory.
type Dependencies struct {
	Config *config.Config
	DB     spots.DBTX
	Redis  *redis.Client
	Logger *zap.Logger
}

type AppHandlers struct {
	Spots      *spots.Handler
	Enrichment *enrichment.Handler
	View       *viewstate.Handler
	Map        *mapview.Handler
}

func Setup(r *gin.Engine, deps Dependencies) error {
	handlers, err := setupDependencies(deps)
	if err != nil {
		return err
	}
	setupRouter(r, handlers, deps.Logger)
	return nil
}

func setupDependencies(deps Dependencies) (*AppHandlers, error) {
	cfg, log := deps.Config, deps.Logger
	baseHandler := domain.NewBaseHandler(log)

	// Image pipeline; uploads are reported as failed per file when storage is not configured
	var uploader storage.Uploader
	if cfg.Storage.Enabled() {
		cu, err := storage.NewCloudinaryUploader(cfg.Storage.CloudName, cfg.Storage.APIKey, cfg.Storage.APISecret, cfg.Storage.Folder)
		if err != nil {
			return nil, err
		}
		uploader = cu
	} else {
		log.Warn("Object storage not configured, image uploads disabled")
	}
	pipeline := storage.NewPipeline(storage.NewNormalizer(), uploader, log)

	// Spots
	spotRepo := spots.NewRepository(deps.DB, log)
	spotService := spots.NewService(spotRepo, pipeline, spots.ServiceOptions{
		ListTTL:  cfg.Spots.ListTTL,
		Retry:    spots.RetryPolicy{Attempts: cfg.Spots.WriteRetries, Backoff: cfg.Spots.RetryBackoff},
		Location: cfg.Map.Location(),
	}, log)

	// Enrichment
	var store cache.Store
	if deps.Redis != nil {
		store = cache.NewRedisStore(deps.Redis, "fishspots", log)
	} else {
		store = cache.NewMemoryStore("enrichment", 10*time.Minute, log)
	}
	enrichService := enrichment.NewService(
		enrichment.NewWeatherClient(cfg.Enrichment.WeatherBaseURL, cfg.Enrichment.WeatherAPIKey, cfg.Enrichment.WeatherLang, cfg.Enrichment.WeatherTimeout),
		enrichment.NewWaterClient(cfg.Enrichment.WaterBaseURL, cfg.Enrichment.WaterTimeout),
		store,
		enrichment.Options{
			WeatherTTL:     cfg.Enrichment.WeatherTTL,
			WaterTTL:       cfg.Enrichment.WaterTTL,
			NegativeTTL:    cfg.Enrichment.NegativeTTL,
			CoordPrecision: cfg.Enrichment.CoordPrecision,
			Concurrency:    cfg.Enrichment.Concurrency,
		},
		log,
	)

	// View state
	center := models.Coordinates{Latitude: cfg.Map.DefaultLat, Longitude: cfg.Map.DefaultLon}
	stabilizer := viewstate.NewStabilizer(center, cfg.Map.DefaultZoom, cfg.Map.RecenterZoom)
	sessions := viewstate.NewStore(stabilizer, cfg.Map.SessionTTL, log)

	renderer := mapview.NewRenderer(spotService, enrichService, sessions, log)

	return &AppHandlers{
		Spots:      spots.NewHandler(baseHandler, spotService, sessions),
		Enrichment: enrichment.NewHandler(baseHandler, enrichService),
		View:       viewstate.NewHandler(baseHandler, sessions),
		Map:        mapview.NewHandler(baseHandler, renderer, spotService, enrichService),
	}, nil
}

func setupRouter(r *gin.Engine, h *AppHandlers, log *zap.Logger) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Reports and location pushes are limited per session
	reportLimiter := middleware.NewRateLimiter(log, 10, time.Minute)
	wsLimiter := middleware.NewRateLimiter(log, 5, time.Minute)

	api := r.Group("/api")
	{
		api.GET("/spots", h.Spots.ListSpots)
		api.POST("/spots", middleware.RateLimitMiddleware(reportLimiter), h.Spots.ReportSpot)
		api.GET("/spots/:id", h.Spots.GetSpot)
		api.GET("/spots/:id/popup", h.Map.GetPopup)

		api.GET("/map", h.Map.GetMap)
		api.GET("/enrichment", h.Enrichment.GetEnrichment)

		api.GET("/view", h.View.GetView)
		api.POST("/view/recenter", h.View.Recenter)
		api.POST("/view/camera", h.View.CameraMoved)
		api.POST("/location", h.View.PostLocation)
	}

	r.GET("/ws/location", middleware.RateLimitMiddleware(wsLimiter), h.View.LocationStream)

	log.Info("Routes registered")
}
