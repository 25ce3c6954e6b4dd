package mapview

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/domain"
	"github.com/FACorreiaa/go-fishspots/internal/app/middleware"
	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

type SpotGetter interface {
	GetSpot(ctx context.Context, id string) (*models.Spot, error)
}

type PlaceEnricher interface {
	Enrich(ctx context.Context, coords models.Coordinates, name string) models.EnrichmentRecord
}

type Handler struct {
	*domain.BaseHandler
	renderer *Renderer
	spots    SpotGetter
	enricher PlaceEnricher
}

func NewHandler(base *domain.BaseHandler, renderer *Renderer, spots SpotGetter, enricher PlaceEnricher) *Handler {
	return &Handler{BaseHandler: base, renderer: renderer, spots: spots, enricher: enricher}
}

// GetMap serves the map payload. A matching If-None-Match gets 304 so the widget
// is only redrawn when something changed.
func (h *Handler) GetMap(c *gin.Context) {
	payload, err := h.renderer.Render(c.Request.Context(), middleware.SessionID(c), Filter{Fish: c.Query("fish")})
	if err != nil {
		h.RespondError(c, err)
		return
	}

	etag, err := payload.ETag()
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// GetPopup renders one spot's popup as HTML.
func (h *Handler) GetPopup(c *gin.Context) {
	spot, err := h.spots.GetSpot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.RespondError(c, err)
		return
	}
	var rec models.EnrichmentRecord
	if h.enricher != nil {
		rec = h.enricher.Enrich(c.Request.Context(), spot.Coordinates, spot.Name)
	} else {
		h.Logger.Debug("Popup without enrichment", zap.String("id", spot.ID.String()))
	}
	h.Render(c, http.StatusOK, Popup(PopupFor(*spot, rec)))
}
