// Package session persists the signed-in session on a best-effort basis.
//
// Failures to save, load or clear are logged and never returned: a session
// that could not be persisted still lets the user in, it just cannot be
// resumed or authenticated once its save has given up.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"otp-session-auth/internal/session/domain"
	"otp-session-auth/internal/session/repository"
)

// DefaultKey is the slot used by single-user clients.
const DefaultKey = "active_session"

const (
	saveTimeout     = 10 * time.Second
	defaultMaxTries = 3
)

// Store wraps a Repository with asynchronous, retried saves.
type Store struct {
	repo     repository.Repository
	maxTries uint
	initial  time.Duration
	wg       sync.WaitGroup

	mu      sync.Mutex
	pending map[pendingSave]int
}

type pendingSave struct{ key, id string }

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetry sets how many times a save is tried and the first backoff interval.
func WithRetry(maxTries uint, initial time.Duration) StoreOption {
	return func(s *Store) {
		if maxTries > 0 {
			s.maxTries = maxTries
		}
		if initial > 0 {
			s.initial = initial
		}
	}
}

// NewStore returns a best-effort store over repo.
func NewStore(repo repository.Repository, opts ...StoreOption) *Store {
	s := &Store{
		repo:     repo,
		maxTries: defaultMaxTries,
		initial:  100 * time.Millisecond,
		pending:  make(map[pendingSave]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists sess under key in the background. It returns immediately.
func (s *Store) Save(key string, sess *domain.Session) {
	cp := *sess
	p := pendingSave{key: key, id: cp.ID}
	s.track(p, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.track(p, -1)
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		b := backoff.NewExponentialBackOff()
		b.InitialInterval = s.initial
		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			return struct{}{}, s.repo.Save(ctx, key, &cp)
		},
			backoff.WithBackOff(b),
			backoff.WithMaxTries(s.maxTries),
			backoff.WithNotify(func(err error, next time.Duration) {
				log.Debug().Err(err).Str("key", key).Dur("next_retry", next).Msg("session: save failed, retrying")
			}),
		)
		if err != nil {
			log.Error().Err(err).Str("key", key).Str("email", cp.Email).Msg("session: failed to save session")
		}
	}()
}

// Pending reports whether a save of session id under key is still in flight.
func (s *Store) Pending(key, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[pendingSave{key: key, id: id}] > 0
}

func (s *Store) track(p pendingSave, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p] += delta
	if s.pending[p] <= 0 {
		delete(s.pending, p)
	}
}

// Load returns the session under key, or nil when there is none or it could
// not be read.
func (s *Store) Load(ctx context.Context, key string) *domain.Session {
	sess, err := s.repo.Load(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("session: failed to load session")
		return nil
	}
	return sess
}

// Clear removes the session under key.
func (s *Store) Clear(ctx context.Context, key string) {
	if err := s.repo.Clear(ctx, key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("session: failed to clear session")
	}
}

// Wait blocks until background saves finish or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Slot binds a Store to one key.
func (s *Store) Slot(key string) *Slot {
	return &Slot{store: s, key: key}
}

// Slot is the save/load/clear collaborator for a single session key.
type Slot struct {
	store *Store
	key   string
}

// Key returns the slot's key.
func (sl *Slot) Key() string { return sl.key }

// Save persists sess in the background.
func (sl *Slot) Save(sess *domain.Session) { sl.store.Save(sl.key, sess) }

// Load returns the stored session or nil.
func (sl *Slot) Load(ctx context.Context) *domain.Session { return sl.store.Load(ctx, sl.key) }

// Clear removes the stored session.
func (sl *Slot) Clear(ctx context.Context) { sl.store.Clear(ctx, sl.key) }

// Wait drains background saves.
func (sl *Slot) Wait(ctx context.Context) error { return sl.store.Wait(ctx) }
