package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/middleware"
	"github.com/FACorreiaa/go-fishspots/internal/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Enrichment: config.EnrichmentConfig{
			WeatherTimeout: time.Second,
			WaterTimeout:   time.Second,
		},
		Spots: config.SpotsConfig{ListTTL: time.Minute, WriteRetries: 1},
		Map: config.MapConfig{
			DefaultLat:   13.7563,
			DefaultLon:   100.5018,
			DefaultZoom:  12,
			RecenterZoom: 15,
			SessionTTL:   time.Hour,
			Timezone:     "Asia/Bangkok",
		},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	r := gin.New()
	r.Use(middleware.SessionMiddleware())
	require.NoError(t, Setup(r, Dependencies{Config: testConfig(), DB: mock, Logger: zap.NewNop()}))
	return r, mock
}

func TestSetup_Health(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSetup_ListSpots(t *testing.T) {
	r, mock := newTestRouter(t)
	now := time.Date(2026, 3, 7, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM spots`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "lat", "lon", "fish_type", "description", "image_url", "created_at", "updated_at"}).
			AddRow(uuid.New(), "Bang Pu", 13.5, 100.6, "Catfish", "", "", now, now))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/spots", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Spots []struct {
			Name string `json:"name"`
		} `json:"spots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Spots, 1)
	assert.Equal(t, "Bang Pu", body.Spots[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetup_RegisteredRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /api/spots",
		"POST /api/spots",
		"GET /api/spots/:id",
		"GET /api/spots/:id/popup",
		"GET /api/map",
		"GET /api/enrichment",
		"GET /api/view",
		"POST /api/view/recenter",
		"POST /api/view/camera",
		"POST /api/location",
		"GET /ws/location",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestSetup_ViewIsPerSession(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/view", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Result().Cookies(), "session cookie issued")
}
