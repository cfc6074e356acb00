package session

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	rec     Record
	expires time.Time
}

// MemoryStore keeps records in process memory.  It is used when Redis is
// not reachable, in which case sessions do not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, sid string, r Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.entries[sid] = memEntry{rec: r, expires: exp}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sid string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sid]
	if !ok {
		return Record{}, ErrNotFound
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, sid)
		return Record{}, ErrNotFound
	}
	return e.rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	delete(s.entries, sid)
	s.mu.Unlock()
	return nil
}
