package viewstate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

type session struct {
	mu         sync.Mutex
	view       models.ViewState
	sample     *models.LocationSample
	denied     string
	generation uint64
	cancel     context.CancelFunc
}

// Store holds the view state of every live session. A session expires after
// ttl without activity.
type Store struct {
	stabilizer *Stabilizer
	sessions   *gocache.Cache
	mu         sync.Mutex
	logger     *zap.Logger
	now        func() time.Time
}

func NewStore(stabilizer *Stabilizer, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	s := &Store{
		stabilizer: stabilizer,
		sessions:   gocache.New(ttl, ttl/4),
		logger:     logger,
		now:        time.Now,
	}
	s.sessions.OnEvicted(func(id string, v any) {
		if sess, ok := v.(*session); ok {
			sess.mu.Lock()
			if sess.cancel != nil {
				sess.cancel()
			}
			sess.mu.Unlock()
		}
		s.logger.Debug("Session expired", zap.String("session", id))
	})
	return s
}

// session returns the state for id, creating it on first use and sliding its expiry.
func (s *Store) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.sessions.Get(id); ok {
		sess := v.(*session)
		s.sessions.SetDefault(id, sess)
		return sess
	}
	sess := &session{}
	s.sessions.SetDefault(id, sess)
	return sess
}

// View returns the current view state without changing it.
func (s *Store) View(id string) models.ViewState {
	sess := s.session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view
}

// Apply feeds ev through the stabilizer and stores the result.
func (s *Store) Apply(id string, ev Event) models.ViewState {
	sess := s.session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.view = s.stabilizer.Next(sess.view, ev)
	return sess.view
}

// Recenter moves the camera onto the latest device sample, if any.
func (s *Store) Recenter(id string) models.ViewState {
	sess := s.session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.view = s.stabilizer.Next(sess.view, Recenter{Sample: sess.sample})
	return sess.view
}

// RecordSample stores a device reading. It never moves the camera.
func (s *Store) RecordSample(id string, sample models.LocationSample) {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.now()
	}
	sess := s.session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.sample = &sample
	sess.denied = ""
}

// RecordDenied notes that the device refused or failed to give a location.
// A previously known sample is kept.
func (s *Store) RecordDenied(id, reason string) {
	sess := s.session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.denied = reason
}

// Latest returns the most recent device sample of the session.
func (s *Store) Latest(id string) (models.LocationSample, bool) {
	sess := s.session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.sample == nil {
		return models.LocationSample{}, false
	}
	return *sess.sample, true
}

// Denied returns the last location error reported by the device, if any.
func (s *Store) Denied(id string) string {
	sess := s.session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.denied
}

// Pass is one render of a session's map. Starting a newer pass for the same
// session cancels this one and makes Current report false.
type Pass struct {
	store      *Store
	id         string
	generation uint64
}

// BeginPass starts a render pass, cancelling any in-flight pass of the session.
// The returned context ends when a newer pass begins or the returned cancel is called.
func (s *Store) BeginPass(ctx context.Context, id string) (context.Context, *Pass, func()) {
	sess := s.session(id)
	passCtx, cancel := context.WithCancel(ctx)

	sess.mu.Lock()
	if sess.cancel != nil {
		sess.cancel()
	}
	sess.generation++
	sess.cancel = cancel
	gen := sess.generation
	sess.mu.Unlock()

	return passCtx, &Pass{store: s, id: id, generation: gen}, cancel
}

// Current reports whether no newer pass has started.
func (p *Pass) Current() bool {
	sess := p.store.session(p.id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.generation == p.generation
}

// Count is the number of live sessions.
func (s *Store) Count() int {
	return s.sessions.ItemCount()
}
