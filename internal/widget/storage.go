package widget

import "sync"

// Durable storage keys, one per independently persisted piece of session
// state. They mirror the browser-storage keys the web widget uses.
const (
	storageKeyTurns    = "chat_turns"
	storageKeyOpen     = "chat_open"
	storageKeyMode     = "chat_mode"
	storageKeyIdentity = "chat_user_name"
	storageKeyActivity = "chat_last"
)

// Storage is the durable key-value sink behind the session controller.
// Writes are best-effort and fire-and-forget: implementations report no
// errors, and a write lost between state mutation and storage is accepted.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStorage implements Storage with an in-process map.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage returns an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get returns the stored value for key.
func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

// Set stores value under key.
func (s *MemoryStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key from storage.
func (s *MemoryStorage) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}
