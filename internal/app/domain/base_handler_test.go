package domain

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("name: %w", models.ErrValidation), want: http.StatusBadRequest},
		{err: models.ErrNoLocation, want: http.StatusBadRequest},
		{err: models.ErrBadRequest, want: http.StatusBadRequest},
		{err: fmt.Errorf("spot x: %w", models.ErrNotFound), want: http.StatusNotFound},
		{err: models.ErrSuperseded, want: http.StatusConflict},
		{err: fmt.Errorf("%w: insert failed", models.ErrUnavailable), want: http.StatusBadGateway},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	NewBaseHandler(nil).RespondError(c, fmt.Errorf("%w: write failed: permission denied for table spots", models.ErrUnavailable))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"upstream unavailable: write failed: permission denied for table spots"}`, w.Body.String())
}
