package spots

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/domain"
	"github.com/FACorreiaa/go-fishspots/internal/app/domain/storage"
	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ListSpots(ctx context.Context) ([]models.Spot, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Spot), args.Error(1)
}

func (m *MockService) GetSpot(ctx context.Context, id string) (*models.Spot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Spot), args.Error(1)
}

func (m *MockService) ReportSpot(ctx context.Context, req ReportRequest, files []storage.Source) (*models.ReportResult, error) {
	args := m.Called(ctx, req, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportResult), args.Error(1)
}

type staticLocations map[string]models.LocationSample

func (s staticLocations) Latest(sessionID string) (models.LocationSample, bool) {
	sample, ok := s[sessionID]
	return sample, ok
}

func newTestRouter(svc Service, locations LocationSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(domain.NewBaseHandler(zap.NewNop()), svc, locations)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("session_id", "tab-1")
		c.Next()
	})
	r.GET("/api/spots", h.ListSpots)
	r.GET("/api/spots/:id", h.GetSpot)
	r.POST("/api/spots", h.ReportSpot)
	return r
}

func postForm(r *gin.Engine, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/spots", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_ListSpotsDegradesToEmpty(t *testing.T) {
	svc := new(MockService)
	svc.On("ListSpots", mock.Anything).Return([]models.Spot{}, models.ErrUnavailable)

	w := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/spots", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"spots":[]}`, w.Body.String())
}

func TestHandler_GetSpotErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "bad id", err: models.ErrBadRequest, wantStatus: http.StatusBadRequest},
		{name: "missing", err: models.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "database down", err: models.ErrUnavailable, wantStatus: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("GetSpot", mock.Anything, "abc").Return(nil, tt.err)

			w := httptest.NewRecorder()
			newTestRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/spots/abc", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestHandler_ReportSpotCoordinates(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		locations  LocationSource
		wantCoords *models.Coordinates
	}{
		{
			name:       "manual pair wins over device",
			form:       url.Values{"name": {"Bang Pu"}, "lat": {"13.5"}, "lon": {"100.6"}},
			locations:  staticLocations{"tab-1": {Latitude: 1, Longitude: 2}},
			wantCoords: &models.Coordinates{Latitude: 13.5, Longitude: 100.6},
		},
		{
			name:       "device sample fallback",
			form:       url.Values{"name": {"Bang Pu"}},
			locations:  staticLocations{"tab-1": {Latitude: 13.7, Longitude: 100.5}},
			wantCoords: &models.Coordinates{Latitude: 13.7, Longitude: 100.5},
		},
		{
			name:      "no location at all",
			form:      url.Values{"name": {"Bang Pu"}},
			locations: staticLocations{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("ReportSpot", mock.Anything, mock.MatchedBy(func(req ReportRequest) bool {
				return assert.ObjectsAreEqual(tt.wantCoords, req.Coordinates)
			}), mock.Anything).Return(&models.ReportResult{Action: models.MergeInsert}, nil).Once()

			w := postForm(newTestRouter(svc, tt.locations), tt.form)
			assert.Equal(t, http.StatusCreated, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_ReportSpotRejectsBadLatitude(t *testing.T) {
	svc := new(MockService)
	w := postForm(newTestRouter(svc, nil), url.Values{"name": {"x"}, "lat": {"north"}, "lon": {"100"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "ReportSpot", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_ReportSpotMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Khlong Dan"))
	require.NoError(t, mw.WriteField("fish_types", "Snakehead, Catfish"))
	require.NoError(t, mw.WriteField("lat", "13.5"))
	require.NoError(t, mw.WriteField("lon", "100.8"))
	for _, name := range []string{"a.jpg", "b.png"} {
		part, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("not really an image"))
	}
	require.NoError(t, mw.Close())

	svc := new(MockService)
	svc.On("ReportSpot", mock.Anything, mock.MatchedBy(func(req ReportRequest) bool {
		return req.Name == "Khlong Dan" && req.FishTypes == "Snakehead, Catfish"
	}), mock.MatchedBy(func(files []storage.Source) bool {
		if len(files) != 2 || files[0].Filename != "a.jpg" || files[1].Filename != "b.png" {
			return false
		}
		rc, err := files[0].Open()
		if err != nil {
			return false
		}
		defer rc.Close()
		return true
	})).Return(&models.ReportResult{
		Action:  models.MergeUpdate,
		Match:   models.MatchName,
		Uploads: []models.UploadResult{{Filename: "a.jpg", Error: "failed to decode image"}},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/spots", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var result models.ReportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.MergeUpdate, result.Action)
	assert.Equal(t, "failed to decode image", result.Uploads[0].Error)
}
