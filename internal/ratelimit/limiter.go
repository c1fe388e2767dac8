package ratelimit

import (
	"sync"
	"time"
)

// Store persists hit timestamps per key. Implementations do not need to be
// safe for concurrent use: the Limiter serializes access so that the
// prune-check-append sequence stays atomic.
type Store interface {
	Hits(key string) []time.Time
	Put(key string, hits []time.Time)
}

// MemoryStore keeps hit lists in a process-wide map. Records are only pruned
// on access, so the map grows with unique clients; acceptable for a
// single-instance, low-traffic deployment.
type MemoryStore struct {
	hits map[string][]time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hits: make(map[string][]time.Time)}
}

// Hits returns the recorded timestamps for key.
func (s *MemoryStore) Hits(key string) []time.Time {
	return s.hits[key]
}

// Put replaces the recorded timestamps for key.
func (s *MemoryStore) Put(key string, hits []time.Time) {
	s.hits[key] = hits
}

// Limiter admits requests within a sliding window: at most max hits per key
// in the trailing window. Each server process enforces independently; two
// instances behind a load balancer give looser effective limits.
type Limiter struct {
	mu     sync.Mutex
	store  Store
	window time.Duration
	max    int
}

// New builds a limiter over the given store.
func New(store Store, window time.Duration, max int) *Limiter {
	return &Limiter{store: store, window: window, max: max}
}

// Admit reports whether a request under key may proceed at instant now.
// Stale hits are pruned lazily; a rejected attempt is not recorded.
func (l *Limiter) Admit(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.store.Hits(key)
	recent := hits[:0:0]
	for _, hit := range hits {
		if now.Sub(hit) < l.window {
			recent = append(recent, hit)
		}
	}

	if len(recent) >= l.max {
		l.store.Put(key, recent)
		return false
	}

	recent = append(recent, now)
	l.store.Put(key, recent)
	return true
}
