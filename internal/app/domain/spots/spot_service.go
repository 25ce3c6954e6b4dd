package spots

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/domain/storage"
	"github.com/FACorreiaa/go-fishspots/internal/app/models"
	"github.com/FACorreiaa/go-fishspots/internal/app/observability/metrics"
)

var _ Service = (*ServiceImpl)(nil)

const listCacheKey = "spots:all"

// ReportRequest is a submitted add-spot form. Coordinates is nil when the user
// gave no manual pair and no device sample was available.
type ReportRequest struct {
	Name        string
	FishTypes   string
	Description string
	Coordinates *models.Coordinates
}

// RetryPolicy bounds the retries of a spot table write.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

type ServiceOptions struct {
	ListTTL  time.Duration
	Retry    RetryPolicy
	Location *time.Location
}

type Service interface {
	ListSpots(ctx context.Context) ([]models.Spot, error)
	GetSpot(ctx context.Context, id string) (*models.Spot, error)
	ReportSpot(ctx context.Context, req ReportRequest, files []storage.Source) (*models.ReportResult, error)
}

type ServiceImpl struct {
	logger   *zap.Logger
	repo     Repository
	images   storage.Processor
	resolver *Resolver
	list     *cache.Cache
	retry    RetryPolicy
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewService(repo Repository, images storage.Processor, opts ServiceOptions, logger *zap.Logger) *ServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ListTTL <= 0 {
		opts.ListTTL = 10 * time.Minute
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry.Attempts = 3
	}
	if opts.Retry.Backoff <= 0 {
		opts.Retry.Backoff = 200 * time.Millisecond
	}
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		images:   images,
		resolver: NewResolver(opts.Location),
		list:     cache.New(opts.ListTTL, 2*opts.ListTTL),
		retry:    opts.Retry,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// ListSpots returns the memoized spot list. On failure it returns an empty list
// together with the error so callers can still render.
func (s *ServiceImpl) ListSpots(ctx context.Context) ([]models.Spot, error) {
	ctx, span := otel.Tracer("SpotService").Start(ctx, "ListSpots")
	defer span.End()

	if cached, found := s.list.Get(listCacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.([]models.Spot), nil
	}

	list, err := s.repo.ListSpots(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list spots")
		s.logger.Error("Failed to list spots", zap.Error(err))
		return []models.Spot{}, fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}
	if list == nil {
		list = []models.Spot{}
	}
	s.list.Set(listCacheKey, list, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "Spots listed")
	return list, nil
}

func (s *ServiceImpl) GetSpot(ctx context.Context, id string) (*models.Spot, error) {
	spotID, err := parseSpotID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetSpot(ctx, spotID)
}

// InvalidateList drops the memoized spot list.
func (s *ServiceImpl) InvalidateList() {
	s.list.Delete(listCacheKey)
}

// ReportSpot validates the report, uploads its photos, resolves it against a fresh
// snapshot and applies the decision.
func (s *ServiceImpl) ReportSpot(ctx context.Context, req ReportRequest, files []storage.Source) (*models.ReportResult, error) {
	ctx, span := otel.Tracer("SpotService").Start(ctx, "ReportSpot", trace.WithAttributes(
		attribute.String("spot.name", req.Name),
		attribute.Int("files.count", len(files)),
	))
	defer span.End()

	report, err := validateReport(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid report")
		return nil, err
	}

	var uploads []models.UploadResult
	if len(files) > 0 && s.images != nil {
		uploads = s.images.ProcessAll(ctx, files)
		for _, u := range uploads {
			if u.URL != "" {
				report.ImageURLs = append(report.ImageURLs, u.URL)
			}
		}
	}

	snapshot, err := s.repo.ListSpots(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read snapshot")
		return nil, fmt.Errorf("%w: failed to read spots: %v", models.ErrUnavailable, err)
	}

	decision := s.resolver.Resolve(report, snapshot, s.now())
	span.SetAttributes(
		attribute.String("merge.action", string(decision.Action)),
		attribute.String("merge.match", string(decision.Match)),
	)

	spot := decision.Spot
	err = s.withRetry(ctx, string(decision.Action), func(ctx context.Context) error {
		if decision.Action == models.MergeUpdate {
			return s.repo.UpdateSpot(ctx, &spot)
		}
		return s.repo.InsertSpot(ctx, &spot)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save spot")
		if errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to save spot: %v", models.ErrUnavailable, err)
	}

	s.InvalidateList()
	metrics.Get().SpotReportsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", string(decision.Action)),
	))
	s.logger.Info("Spot report saved",
		zap.String("action", string(decision.Action)),
		zap.String("match", string(decision.Match)),
		zap.String("id", spot.ID.String()),
		zap.Int("uploads", len(uploads)),
	)
	span.SetStatus(codes.Ok, "Spot report saved")

	if uploads == nil {
		uploads = []models.UploadResult{}
	}
	return &models.ReportResult{
		Action:  decision.Action,
		Match:   decision.Match,
		Spot:    spot,
		Uploads: uploads,
	}, nil
}

func parseSpotID(id string) (uuid.UUID, error) {
	spotID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid spot id %q: %w", id, models.ErrBadRequest)
	}
	return spotID, nil
}

func validateReport(req ReportRequest) (models.NewSpotReport, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.NewSpotReport{}, fmt.Errorf("spot name is required: %w", models.ErrValidation)
	}
	if req.Coordinates == nil {
		return models.NewSpotReport{}, models.ErrNoLocation
	}
	if !req.Coordinates.Valid() {
		return models.NewSpotReport{}, fmt.Errorf("coordinates out of range: lat=%f, lon=%f: %w",
			req.Coordinates.Latitude, req.Coordinates.Longitude, models.ErrValidation)
	}
	return models.NewSpotReport{
		Name:        name,
		Coordinates: *req.Coordinates,
		FishTypes:   req.FishTypes,
		Description: strings.TrimSpace(req.Description),
	}, nil
}

// withRetry runs op until it succeeds, fails with a permanent error, or the
// attempts are exhausted. The wait grows linearly with each attempt.
func (s *ServiceImpl) withRetry(ctx context.Context, action string, op func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == s.retry.Attempts {
			break
		}
		metrics.Get().SpotWriteRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
		s.logger.Warn("Transient error writing spot, retrying",
			zap.String("action", action),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if serr := s.sleep(ctx, time.Duration(attempt)*s.retry.Backoff); serr != nil {
			return serr
		}
	}
	return err
}

// IsTransient reports whether err is worth retrying: the statement never reached
// the server, timed out, or the connection was reset.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
