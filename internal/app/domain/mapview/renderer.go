package mapview

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/FACorreiaa/go-fishspots/internal/app/domain/viewstate"
	"github.com/FACorreiaa/go-fishspots/internal/app/models"
	"github.com/FACorreiaa/go-fishspots/internal/app/observability/metrics"
)

type SpotLister interface {
	ListSpots(ctx context.Context) ([]models.Spot, error)
}

type Enricher interface {
	EnrichSpots(ctx context.Context, spots []models.Spot) map[uuid.UUID]models.EnrichmentRecord
}

// Filter narrows the markers of a render.
type Filter struct {
	// Fish keeps spots with a fish type containing this text, ignoring case.
	Fish string
}

type Marker struct {
	ID        uuid.UUID              `json:"id"`
	Name      string                 `json:"name"`
	Latitude  float64                `json:"lat"`
	Longitude float64                `json:"lon"`
	FishTypes []string               `json:"fish_types"`
	Images    []string               `json:"images"`
	PopupHTML string                 `json:"popup_html"`
	Weather   string                 `json:"weather"`
	Forecast  []models.ForecastEntry `json:"forecast"`
	Water     string                 `json:"water"`
}

// Payload is what the map widget needs for one render.
type Payload struct {
	View         models.ViewState    `json:"view"`
	UserPosition *models.Coordinates `json:"user_position,omitempty"`
	LocationErr  string              `json:"location_error,omitempty"`
	Markers      []Marker            `json:"markers"`
	SpotsErr     string              `json:"spots_error,omitempty"`
}

// ETag fingerprints the payload so unchanged renders can be skipped by the client.
func (p *Payload) ETag() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

type Renderer struct {
	logger   *zap.Logger
	spots    SpotLister
	enricher Enricher
	sessions *viewstate.Store
}

func NewRenderer(spots SpotLister, enricher Enricher, sessions *viewstate.Store, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		logger:   logger,
		spots:    spots,
		enricher: enricher,
		sessions: sessions,
	}
}

// Render builds the map payload of a session. Only the newest pass of a session
// may complete; an older one returns models.ErrSuperseded.
func (r *Renderer) Render(ctx context.Context, sessionID string, filter Filter) (*Payload, error) {
	start := time.Now()
	ctx, span := otel.Tracer("MapRenderer").Start(ctx, "Render", trace.WithAttributes(
		attribute.String("session", sessionID),
		attribute.String("filter.fish", filter.Fish),
	))
	defer span.End()

	ctx, pass, cancel := r.sessions.BeginPass(ctx, sessionID)
	defer cancel()

	var sample *models.LocationSample
	if s, ok := r.sessions.Latest(sessionID); ok {
		sample = &s
	}
	r.sessions.Apply(sessionID, viewstate.Render{Sample: sample})

	payload := &Payload{Markers: []Marker{}}
	list, err := r.spots.ListSpots(ctx)
	if err != nil {
		// Spots are unavailable; the map still renders, just without markers.
		payload.SpotsErr = err.Error()
		r.logger.Warn("Rendering map without spots", zap.String("session", sessionID), zap.Error(err))
	}
	list = r.filter(list, filter)

	if err := r.checkCurrent(ctx, pass); err != nil {
		return nil, r.superseded(ctx, span, err)
	}

	var records map[uuid.UUID]models.EnrichmentRecord
	if r.enricher != nil && len(list) > 0 {
		records = r.enricher.EnrichSpots(ctx, list)
	}

	for _, spot := range list {
		rec := records[spot.ID]
		if rec.Weather.Current == "" {
			rec.Weather.Current = models.SentinelUnavailable
		}
		if rec.Water.Level == "" {
			rec.Water.Level = models.SentinelUnavailable
		}
		html, err := renderHTML(ctx, Popup(PopupFor(spot, rec)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to render popup")
			return nil, fmt.Errorf("failed to render popup for %s: %w", spot.ID, err)
		}
		forecast := rec.Weather.Forecast
		if forecast == nil {
			forecast = []models.ForecastEntry{}
		}
		payload.Markers = append(payload.Markers, Marker{
			ID:        spot.ID,
			Name:      spot.Name,
			Latitude:  spot.Coordinates.Latitude,
			Longitude: spot.Coordinates.Longitude,
			FishTypes: nonNil(spot.FishTypes),
			Images:    nonNil(spot.ImageURLs),
			PopupHTML: html,
			Weather:   rec.Weather.Current,
			Forecast:  forecast,
			Water:     rec.Water.Level,
		})
	}

	if err := r.checkCurrent(ctx, pass); err != nil {
		return nil, r.superseded(ctx, span, err)
	}

	// Read the view last so camera feedback that arrived mid-render is not lost.
	payload.View = r.sessions.View(sessionID)
	if s, ok := r.sessions.Latest(sessionID); ok {
		pos := s.Coordinates()
		payload.UserPosition = &pos
	}
	payload.LocationErr = r.sessions.Denied(sessionID)

	m := metrics.Get()
	m.MapRenderDuration.Record(ctx, time.Since(start).Seconds())
	m.ActiveSessionsGauge.Record(ctx, int64(r.sessions.Count()))
	span.SetAttributes(attribute.Int("markers.count", len(payload.Markers)))
	span.SetStatus(codes.Ok, "Map rendered")
	return payload, nil
}

func (r *Renderer) checkCurrent(ctx context.Context, pass *viewstate.Pass) error {
	if !pass.Current() {
		return models.ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("render cancelled: %w", err)
	}
	return nil
}

func (r *Renderer) superseded(ctx context.Context, span trace.Span, err error) error {
	if errors.Is(err, models.ErrSuperseded) {
		metrics.Get().MapRendersSuperseded.Add(context.WithoutCancel(ctx), 1)
	}
	span.SetStatus(codes.Error, err.Error())
	return err
}

// filter keeps spots where some fish type contains the query, compared case-folded.
func (r *Renderer) filter(list []models.Spot, f Filter) []models.Spot {
	query := strings.TrimSpace(f.Fish)
	if query == "" {
		return list
	}
	fold := cases.Fold()
	query = fold.String(query)
	var out []models.Spot
	for _, spot := range list {
		for _, fish := range spot.FishTypes {
			if strings.Contains(fold.String(fish), query) {
				out = append(out, spot)
				break
			}
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
