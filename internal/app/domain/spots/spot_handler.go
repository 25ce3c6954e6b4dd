package spots

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/domain"
	"github.com/FACorreiaa/go-fishspots/internal/app/domain/storage"
	"github.com/FACorreiaa/go-fishspots/internal/app/middleware"
	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

// maxUploadMemory bounds the multipart form held in memory; larger parts spill to disk.
const maxUploadMemory = 32 << 20

// LocationSource yields the most recent device sample of a session.
type LocationSource interface {
	Latest(sessionID string) (models.LocationSample, bool)
}

type Handler struct {
	*domain.BaseHandler
	service   Service
	locations LocationSource
}

func NewHandler(base *domain.BaseHandler, service Service, locations LocationSource) *Handler {
	return &Handler{BaseHandler: base, service: service, locations: locations}
}

func (h *Handler) ListSpots(c *gin.Context) {
	list, err := h.service.ListSpots(c.Request.Context())
	if err != nil {
		h.Logger.Warn("Serving empty spot list", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"spots": list})
}

func (h *Handler) GetSpot(c *gin.Context) {
	spot, err := h.service.GetSpot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spot)
}

// ReportSpot accepts the add-spot form as multipart/form-data with fields
// name, fish_types, description, optional lat/lon and any number of "images" files.
func (h *Handler) ReportSpot(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.RespondError(c, fmt.Errorf("failed to parse form: %v: %w", err, models.ErrBadRequest))
		return
	}
	form := c.Request.MultipartForm

	coords, err := h.reportCoordinates(c)
	if err != nil {
		h.RespondError(c, err)
		return
	}

	var sources []storage.Source
	if form != nil {
		for _, fh := range form.File["images"] {
			sources = append(sources, storage.Source{
				Filename: fh.Filename,
				Open:     func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
	}

	result, err := h.service.ReportSpot(c.Request.Context(), ReportRequest{
		Name:        c.PostForm("name"),
		FishTypes:   c.PostForm("fish_types"),
		Description: c.PostForm("description"),
		Coordinates: coords,
	}, sources)
	if err != nil {
		h.RespondError(c, err)
		return
	}

	status := http.StatusOK
	if result.Action == models.MergeInsert {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// reportCoordinates prefers a manual lat/lon pair and falls back to the session's
// latest device sample. Nil means neither is available.
func (h *Handler) reportCoordinates(c *gin.Context) (*models.Coordinates, error) {
	latRaw := strings.TrimSpace(c.PostForm("lat"))
	lonRaw := strings.TrimSpace(c.PostForm("lon"))
	if latRaw != "" || lonRaw != "" {
		lat, err := strconv.ParseFloat(latRaw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q: %w", latRaw, models.ErrValidation)
		}
		lon, err := strconv.ParseFloat(lonRaw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q: %w", lonRaw, models.ErrValidation)
		}
		return &models.Coordinates{Latitude: lat, Longitude: lon}, nil
	}

	if h.locations == nil {
		return nil, nil
	}
	if sample, ok := h.locations.Latest(middleware.SessionID(c)); ok {
		coords := sample.Coordinates()
		return &coords, nil
	}
	return nil, nil
}
