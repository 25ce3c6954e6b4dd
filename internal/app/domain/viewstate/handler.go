package viewstate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/domain"
	"github.com/FACorreiaa/go-fishspots/internal/app/middleware"
	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LocationAck is the server reply to every location message.
type LocationAck struct {
	Type   string           `json:"type"`
	View   models.ViewState `json:"view"`
	Denied string           `json:"denied,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type Handler struct {
	*domain.BaseHandler
	store *Store
}

func NewHandler(base *domain.BaseHandler, store *Store) *Handler {
	return &Handler{BaseHandler: base, store: store}
}

func (h *Handler) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.View(middleware.SessionID(c)))
}

func (h *Handler) Recenter(c *gin.Context) {
	id := middleware.SessionID(c)
	if _, ok := h.store.Latest(id); !ok {
		h.Logger.Debug("Recenter without a device sample", zap.String("session", id))
	}
	c.JSON(http.StatusOK, h.store.Recenter(id))
}

func (h *Handler) CameraMoved(c *gin.Context) {
	var req models.CameraUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondError(c, fmt.Errorf("invalid camera update: %v: %w", err, models.ErrBadRequest))
		return
	}
	view := h.store.Apply(middleware.SessionID(c), CameraMoved{
		Center: models.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude},
		Zoom:   req.Zoom,
	})
	c.JSON(http.StatusOK, view)
}

// PostLocation accepts a one-shot device reading or denial.
func (h *Handler) PostLocation(c *gin.Context) {
	var msg models.LocationMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		h.RespondError(c, fmt.Errorf("invalid location message: %v: %w", err, models.ErrBadRequest))
		return
	}
	ack, err := h.record(middleware.SessionID(c), msg)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

// LocationStream upgrades to a websocket that receives location messages and
// acknowledges each with the current view state.
func (h *Handler) LocationStream(c *gin.Context) {
	id := middleware.SessionID(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("Failed to upgrade location stream", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	acks := make(chan LocationAck, 8)
	go h.writePump(conn, acks, done)

	h.Logger.Debug("Location stream opened", zap.String("session", id))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Warn("Location stream closed unexpectedly", zap.String("session", id), zap.Error(err))
			}
			return
		}
		var ack LocationAck
		var msg models.LocationMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			err = fmt.Errorf("invalid location message: %v: %w", err, models.ErrBadRequest)
			ack = LocationAck{Type: "error", View: h.store.View(id), Error: err.Error()}
		} else if ack, err = h.record(id, msg); err != nil {
			ack = LocationAck{Type: "error", View: h.store.View(id), Error: err.Error()}
		}
		select {
		case acks <- ack:
		default:
			h.Logger.Debug("Dropping location ack for slow client", zap.String("session", id))
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, acks <-chan LocationAck, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ack := <-acks:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ack); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handler) record(id string, msg models.LocationMessage) (LocationAck, error) {
	if msg.Error != "" {
		h.store.RecordDenied(id, msg.Error)
		return LocationAck{Type: "denied", View: h.store.View(id), Denied: msg.Error}, nil
	}
	if msg.Latitude == nil || msg.Longitude == nil {
		return LocationAck{}, fmt.Errorf("latitude and longitude are required: %w", models.ErrValidation)
	}
	sample := models.LocationSample{
		Latitude:  *msg.Latitude,
		Longitude: *msg.Longitude,
		Accuracy:  msg.Accuracy,
	}
	if !sample.Coordinates().Valid() {
		return LocationAck{}, fmt.Errorf("coordinates out of range: %w", models.ErrValidation)
	}
	h.store.RecordSample(id, sample)
	return LocationAck{Type: "ack", View: h.store.View(id)}, nil
}
