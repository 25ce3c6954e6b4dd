package spots

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/domain/storage"
	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListSpots(ctx context.Context) ([]models.Spot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Spot), args.Error(1)
}

func (m *MockRepository) GetSpot(ctx context.Context, id uuid.UUID) (*models.Spot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Spot), args.Error(1)
}

func (m *MockRepository) InsertSpot(ctx context.Context, spot *models.Spot) error {
	args := m.Called(ctx, spot)
	return args.Error(0)
}

func (m *MockRepository) UpdateSpot(ctx context.Context, spot *models.Spot) error {
	args := m.Called(ctx, spot)
	return args.Error(0)
}

type fakeProcessor struct {
	results []models.UploadResult
	calls   int
}

func (f *fakeProcessor) ProcessAll(_ context.Context, sources []storage.Source) []models.UploadResult {
	f.calls++
	return f.results
}

func newTestService(repo Repository, images storage.Processor) *ServiceImpl {
	svc := NewService(repo, images, ServiceOptions{
		ListTTL:  time.Minute,
		Retry:    RetryPolicy{Attempts: 3, Backoff: time.Millisecond},
		Location: bangkok,
	}, zap.NewNop())
	svc.now = func() time.Time { return fixedAt }
	svc.sleep = func(context.Context, time.Duration) error { return nil }
	return svc
}

func coords(lat, lon float64) *models.Coordinates {
	return &models.Coordinates{Latitude: lat, Longitude: lon}
}

func TestService_ListSpotsIsMemoized(t *testing.T) {
	repo := new(MockRepository)
	stored := []models.Spot{existingSpot("Bang Pu", models.Coordinates{Latitude: 13.5, Longitude: 100.6})}
	repo.On("ListSpots", mock.Anything).Return(stored, nil).Once()

	svc := newTestService(repo, nil)
	for i := 0; i < 3; i++ {
		got, err := svc.ListSpots(context.Background())
		require.NoError(t, err)
		assert.Equal(t, stored, got)
	}
	repo.AssertNumberOfCalls(t, "ListSpots", 1)
}

func TestService_ListSpotsFailureReturnsEmpty(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListSpots", mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

	svc := newTestService(repo, nil)
	got, err := svc.ListSpots(context.Background())
	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestService_ReportSpotValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     ReportRequest
		wantErr error
	}{
		{
			name:    "blank name",
			req:     ReportRequest{Name: "   ", Coordinates: coords(13.5, 100.6)},
			wantErr: models.ErrValidation,
		},
		{
			name:    "no location",
			req:     ReportRequest{Name: "Bang Pu"},
			wantErr: models.ErrNoLocation,
		},
		{
			name:    "latitude out of range",
			req:     ReportRequest{Name: "Bang Pu", Coordinates: coords(91, 100.6)},
			wantErr: models.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			images := &fakeProcessor{}
			svc := newTestService(repo, images)

			result, err := svc.ReportSpot(context.Background(), tt.req, []storage.Source{{Filename: "a.jpg"}})
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, images.calls, "no upload before validation passes")
			repo.AssertNotCalled(t, "ListSpots", mock.Anything)
		})
	}
}

func TestService_ReportSpotInsertsAndInvalidatesList(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListSpots", mock.Anything).Return([]models.Spot{}, nil)
	repo.On("InsertSpot", mock.Anything, mock.MatchedBy(func(s *models.Spot) bool {
		return s.Name == "Khlong Dan" &&
			assert.ObjectsAreEqual([]string{"https://img/ok.jpg"}, s.ImageURLs) &&
			assert.ObjectsAreEqual([]string{"Snakehead"}, s.FishTypes)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Spot).ID = uuid.New()
	}).Return(nil).Once()

	images := &fakeProcessor{results: []models.UploadResult{
		{Filename: "ok.jpg", URL: "https://img/ok.jpg"},
		{Filename: "bad.jpg", Error: "failed to decode image"},
	}}
	svc := newTestService(repo, images)

	_, err := svc.ListSpots(context.Background())
	require.NoError(t, err)

	result, err := svc.ReportSpot(context.Background(), ReportRequest{
		Name:        " Khlong Dan ",
		FishTypes:   "Snakehead",
		Coordinates: coords(13.5, 100.8),
	}, []storage.Source{{Filename: "ok.jpg"}, {Filename: "bad.jpg"}})
	require.NoError(t, err)

	assert.Equal(t, models.MergeInsert, result.Action)
	assert.NotEqual(t, uuid.Nil, result.Spot.ID)
	assert.Len(t, result.Uploads, 2)
	assert.Equal(t, "failed to decode image", result.Uploads[1].Error)

	// The write dropped the memoized list, so the next read goes to the repository.
	_, err = svc.ListSpots(context.Background())
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "ListSpots", 3)
	repo.AssertExpectations(t)
}

func TestService_ReportSpotUpdatesNearbySpot(t *testing.T) {
	existing := existingSpot("Bang Pu", models.Coordinates{Latitude: 13.5, Longitude: 100.6})
	repo := new(MockRepository)
	repo.On("ListSpots", mock.Anything).Return([]models.Spot{existing}, nil)
	repo.On("UpdateSpot", mock.Anything, mock.MatchedBy(func(s *models.Spot) bool {
		return s.ID == existing.ID && s.Name == "Bang Pu"
	})).Return(nil).Once()

	svc := newTestService(repo, nil)
	result, err := svc.ReportSpot(context.Background(), ReportRequest{
		Name:        "Bang Pu pier",
		FishTypes:   "Catfish",
		Description: "night bite",
		Coordinates: coords(13.5003, 100.6),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.MergeUpdate, result.Action)
	assert.Equal(t, models.MatchProximity, result.Match)
	assert.Equal(t, []string{"Catfish", "Tilapia"}, result.Spot.FishTypes)
	assert.Contains(t, result.Spot.Description, "night bite")
	assert.Empty(t, result.Uploads)
	repo.AssertExpectations(t)
}

func TestService_ReportSpotRetries(t *testing.T) {
	transient := &timeoutError{}
	tests := []struct {
		name        string
		errs        []error
		wantErr     bool
		wantInserts int
	}{
		{name: "succeeds after two timeouts", errs: []error{transient, transient, nil}, wantInserts: 3},
		{name: "gives up after three attempts", errs: []error{transient, transient, transient}, wantErr: true, wantInserts: 3},
		{name: "permanent error is not retried", errs: []error{errors.New("duplicate key value")}, wantErr: true, wantInserts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			repo.On("ListSpots", mock.Anything).Return([]models.Spot{}, nil)
			for _, e := range tt.errs {
				repo.On("InsertSpot", mock.Anything, mock.Anything).Return(e).Once()
			}

			svc := newTestService(repo, nil)
			_, err := svc.ReportSpot(context.Background(), ReportRequest{Name: "Dam", Coordinates: coords(14, 101)}, nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrUnavailable)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertNumberOfCalls(t, "InsertSpot", tt.wantInserts)
		})
	}
}

type timeoutError struct{}

func (*timeoutError) Error() string   { return "i/o timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "net timeout", err: fmt.Errorf("failed to insert spot: %w", &timeoutError{}), want: true},
		{name: "connection reset", err: fmt.Errorf("write: %w", syscall.ECONNRESET), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "constraint violation", err: &pgconn.PgError{Code: "23505", Message: "duplicate key"}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestService_GetSpotBadID(t *testing.T) {
	svc := newTestService(new(MockRepository), nil)
	_, err := svc.GetSpot(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}
