package enrichment

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/FACorreiaa/go-fishspots/internal/app/domain"
	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

type Handler struct {
	*domain.BaseHandler
	service Service
}

func NewHandler(base *domain.BaseHandler, service Service) *Handler {
	return &Handler{BaseHandler: base, service: service}
}

// GetEnrichment serves GET /api/enrichment?lat=..&lon=..&name=..
func (h *Handler) GetEnrichment(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		h.RespondError(c, fmt.Errorf("invalid lat %q: %w", c.Query("lat"), models.ErrValidation))
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		h.RespondError(c, fmt.Errorf("invalid lon %q: %w", c.Query("lon"), models.ErrValidation))
		return
	}
	coords := models.Coordinates{Latitude: lat, Longitude: lon}
	if !coords.Valid() {
		h.RespondError(c, fmt.Errorf("coordinates out of range: %w", models.ErrValidation))
		return
	}

	c.JSON(http.StatusOK, h.service.Enrich(c.Request.Context(), coords, c.Query("name")))
}
