package nonces

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps nonces in process memory. Nonces are lost on restart and
// are not shared between replicas.
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose janitor sweeps expired nonces every
// cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (s *MemoryStore) Name() string {
	return "memory"
}

func (s *MemoryStore) Issue(ctx context.Context, nonce string, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Add(nonce, clientIP(ctx), ttl); err != nil {
		return ErrNonceAlreadyIssued
	}
	return nil
}

func (s *MemoryStore) Consume(ctx context.Context, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.cache.Get(nonce); !found {
		return ErrNonceNotFound
	}
	s.cache.Delete(nonce)

	return nil
}

// Len returns the number of nonces that may still be live.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
