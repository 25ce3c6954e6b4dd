package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/middleware"
	"github.com/FACorreiaa/go-fishspots/internal/pkg/config"
)

func testServer() *Server {
	return &Server{
		cfg: &config.Config{
			Spots: config.SpotsConfig{ListTTL: time.Minute, WriteRetries: 1},
			Map: config.MapConfig{
				DefaultLat:  13.7563,
				DefaultLon:  100.5018,
				DefaultZoom: 12,
				Timezone:    "Asia/Bangkok",
			},
			Observability: config.ObservabilityConfig{ServiceName: "fishspots-test"},
			ServerPort:    "8091",
			Mode:          "test",
		},
		logger: zap.NewNop(),
	}
}

func TestSetupRouter_Middleware(t *testing.T) {
	r, err := SetupRouter(testServer())
	require.NoError(t, err)
	require.NoError(t, SetupAssets(r))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session, "session cookie issued")
}

func TestSetupAssets(t *testing.T) {
	r, err := SetupRouter(testServer())
	require.NoError(t, err)
	require.NoError(t, SetupAssets(r))

	tests := []struct {
		path     string
		contains string
	}{
		{path: "/", contains: "leaflet"},
		{path: "/assets/map.js", contains: "/ws/location"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestHTTPServer(t *testing.T) {
	s := testServer()
	s.SetRouter(http.NewServeMux())
	hs := s.HTTPServer()
	assert.Equal(t, ":8091", hs.Addr)
	assert.Zero(t, hs.WriteTimeout)
	assert.NotNil(t, hs.Handler)
}

func TestStartPprofServer_Disabled(t *testing.T) {
	assert.Nil(t, StartPprofServer("", zap.NewNop()))
}
