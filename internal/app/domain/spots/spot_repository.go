package spots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

var _ Repository = (*RepositoryImpl)(nil)

const spotsTable = "spots"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var spotColumns = []string{
	"id",
	"name",
	"lat",
	"lon",
	"COALESCE(fish_type, '')",
	"COALESCE(description, '')",
	"COALESCE(image_url, '')",
	"created_at",
	"updated_at",
}

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	ListSpots(ctx context.Context) ([]models.Spot, error)
	GetSpot(ctx context.Context, id uuid.UUID) (*models.Spot, error)
	InsertSpot(ctx context.Context, spot *models.Spot) error
	UpdateSpot(ctx context.Context, spot *models.Spot) error
}

type RepositoryImpl struct {
	logger *zap.Logger
	db     DBTX
	now    func() time.Time
}

func NewRepository(db DBTX, logger *zap.Logger) *RepositoryImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepositoryImpl{logger: logger, db: db, now: time.Now}
}

// ListSpots returns every spot, oldest first.
func (r *RepositoryImpl) ListSpots(ctx context.Context) ([]models.Spot, error) {
	ctx, span := otel.Tracer("SpotRepository").Start(ctx, "ListSpots")
	defer span.End()

	query, args, err := psql.Select(spotColumns...).From(spotsTable).OrderBy("created_at ASC").ToSql()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query spots")
		return nil, fmt.Errorf("failed to query spots: %w", err)
	}
	defer rows.Close()

	var spots []models.Spot
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan spot: %w", err)
		}
		spots = append(spots, spot)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate spots: %w", err)
	}

	span.SetAttributes(attribute.Int("spots.count", len(spots)))
	span.SetStatus(codes.Ok, "Spots listed")
	return spots, nil
}

func (r *RepositoryImpl) GetSpot(ctx context.Context, id uuid.UUID) (*models.Spot, error) {
	ctx, span := otel.Tracer("SpotRepository").Start(ctx, "GetSpot", trace.WithAttributes(
		attribute.String("spot.id", id.String()),
	))
	defer span.End()

	query, args, err := psql.Select(spotColumns...).From(spotsTable).Where("id = ?", id).ToSql()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build get query: %w", err)
	}

	spot, err := scanSpot(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "No spot found")
			return nil, fmt.Errorf("spot %s: %w", id, models.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query spot")
		return nil, fmt.Errorf("failed to query spot: %w", err)
	}
	return &spot, nil
}

// InsertSpot stores a new spot, assigning its ID and timestamps.
func (r *RepositoryImpl) InsertSpot(ctx context.Context, spot *models.Spot) error {
	ctx, span := otel.Tracer("SpotRepository").Start(ctx, "InsertSpot", trace.WithAttributes(
		attribute.String("spot.name", spot.Name),
	))
	defer span.End()

	if !spot.Coordinates.Valid() {
		err := fmt.Errorf("invalid coordinates: lat=%f, lon=%f: %w", spot.Coordinates.Latitude, spot.Coordinates.Longitude, models.ErrValidation)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid coordinates")
		return err
	}
	if spot.ID == uuid.Nil {
		spot.ID = uuid.New()
	}
	now := r.now()
	if spot.CreatedAt.IsZero() {
		spot.CreatedAt = now
	}
	spot.UpdatedAt = now

	query, args, err := psql.Insert(spotsTable).
		Columns("id", "name", "lat", "lon", "fish_type", "description", "image_url", "created_at", "updated_at").
		Values(
			spot.ID,
			spot.Name,
			spot.Coordinates.Latitude,
			spot.Coordinates.Longitude,
			JoinList(spot.FishTypes, ", "),
			spot.Description,
			JoinList(spot.ImageURLs, ","),
			spot.CreatedAt,
			spot.UpdatedAt,
		).ToSql()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert spot")
		return fmt.Errorf("failed to insert spot: %w", err)
	}

	span.SetAttributes(attribute.String("spot.id", spot.ID.String()))
	span.SetStatus(codes.Ok, "Spot inserted")
	r.logger.Info("Spot inserted", zap.String("id", spot.ID.String()), zap.String("name", spot.Name))
	return nil
}

// UpdateSpot writes the mergeable fields of spot in a single statement.
// Name and coordinates are never rewritten.
func (r *RepositoryImpl) UpdateSpot(ctx context.Context, spot *models.Spot) error {
	ctx, span := otel.Tracer("SpotRepository").Start(ctx, "UpdateSpot", trace.WithAttributes(
		attribute.String("spot.id", spot.ID.String()),
	))
	defer span.End()

	spot.UpdatedAt = r.now()
	query, args, err := psql.Update(spotsTable).
		Set("fish_type", JoinList(spot.FishTypes, ", ")).
		Set("description", spot.Description).
		Set("image_url", JoinList(spot.ImageURLs, ",")).
		Set("updated_at", spot.UpdatedAt).
		Where("id = ?", spot.ID).
		ToSql()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update spot")
		return fmt.Errorf("failed to update spot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Spot not found")
		return fmt.Errorf("spot %s: %w", spot.ID, models.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Spot updated")
	r.logger.Info("Spot updated", zap.String("id", spot.ID.String()), zap.String("name", spot.Name))
	return nil
}

func scanSpot(row pgx.Row) (models.Spot, error) {
	var (
		s         models.Spot
		fishTypes string
		imageURLs string
	)
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Coordinates.Latitude,
		&s.Coordinates.Longitude,
		&fishTypes,
		&s.Description,
		&imageURLs,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return models.Spot{}, err
	}
	s.FishTypes = SplitFishTypes(fishTypes)
	s.ImageURLs = splitURLs(imageURLs)
	return s, nil
}

func splitURLs(raw string) []string {
	var urls []string
	for _, u := range strings.Split(raw, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
