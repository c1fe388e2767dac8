package profile

// Store exposes the owner profile to services and handlers.
type Store interface {
	Owner() Profile
}

// MemoryStore implements Store with a fixed profile, suitable for a
// single-owner portfolio site.
type MemoryStore struct {
	owner Profile
}

// NewMemoryStore returns a MemoryStore holding the supplied profile.
func NewMemoryStore(owner Profile) *MemoryStore {
	return &MemoryStore{owner: owner}
}

// Owner returns the portfolio owner's profile.
func (s *MemoryStore) Owner() Profile {
	return s.owner
}
