package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local session store used when Redis is not
// available and in tests.  Sessions expire after the configured TTL,
// refreshed on access like the Redis store.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]*memEntry
}

type memEntry struct {
	sess    Session
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, data: make(map[string]*memEntry)}
}

func (s *MemoryStore) Create(ctx context.Context) (*Session, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[token]
	if !ok || time.Now().After(e.expires) {
		delete(s.data, token)
		return nil, ErrNotFound
	}
	e.expires = time.Now().Add(s.ttl)
	cp := e.sess // copy out so callers never share the stored value
	cp.Flashes = append([]string(nil), e.sess.Flashes...)
	cp.Token = token
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	cp.Flashes = append([]string(nil), sess.Flashes...)
	s.data[sess.Token] = &memEntry{sess: cp, expires: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, token)
	return nil
}
