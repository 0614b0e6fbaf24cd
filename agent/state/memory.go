package state

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	reply   Reply
	expires time.Time
}

// MemoryReplayStore keeps replies in process memory. Expired entries are
// dropped lazily on access and on Put.
type MemoryReplayStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

var _ ReplayStore = (*MemoryReplayStore)(nil)

func NewMemoryReplayStore(ttl time.Duration) *MemoryReplayStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryReplayStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryReplayStore) Get(_ context.Context, key string) (*Reply, bool, error) {
	if _, err := storeKey("", key); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	r := e.reply
	r.Body = append([]byte(nil), e.reply.Body...)
	return &r, true, nil
}

func (s *MemoryReplayStore) Put(_ context.Context, key string, r *Reply) error {
	if r == nil {
		return ErrNilReply
	}
	if _, err := storeKey("", key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
	cp := *r
	cp.Body = append([]byte(nil), r.Body...)
	s.entries[key] = memoryEntry{reply: cp, expires: now.Add(s.ttl)}
	return nil
}
