// Package redistest provides an in-memory stand-in for the redis helpers.
package redistest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kartly/storefront-backend/pkg/redis"
)

// Store satisfies redis.SessionStore, redis.Locker and
// redis.IdempotencyStore. Expiry is not simulated; call Expire to drop a key.
type Store struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration

	// Err, when set, is returned by every operation.
	Err error
}

var (
	_ redis.SessionStore     = (*Store)(nil)
	_ redis.Locker           = (*Store)(nil)
	_ redis.IdempotencyStore = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.data[key] = fmt.Sprint(value)
	s.ttls[key] = ttl
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	v, ok := s.data[key]
	if !ok {
		return "", redis.ErrNotFound
	}
	return v, nil
}

func (s *Store) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	s.ttls[key] = ttl
	return true, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, key := range keys {
		delete(s.data, key)
		delete(s.ttls, key)
	}
	return nil
}

func (s *Store) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("lock token required")
	}
	return s.SetNX(ctx, key, token, ttl)
}

func (s *Store) ReleaseLock(ctx context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.data[key] == token {
		delete(s.data, key)
		delete(s.ttls, key)
	}
	return nil
}

func (s *Store) IdempotencyKey(scope, id string) string {
	return "kartly:idempotency:" + scope + ":" + id
}

func (s *Store) PaymentSessionKey(sessionID string) string {
	return "kartly:payment_session:" + sessionID
}

func (s *Store) SettlementLockKey(sessionID string) string {
	return "kartly:settlement_lock:" + sessionID
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// TTL returns the ttl recorded for key.
func (s *Store) TTL(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key]
}

// Expire drops key as if its ttl elapsed.
func (s *Store) Expire(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	delete(s.ttls, key)
}

// Ping fails only when Err is set.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Err
}
