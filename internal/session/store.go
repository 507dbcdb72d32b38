package session

import "sync"

// TokenStore is a single durable slot for the bearer token.
//
// All operations are total: implementations degrade to "no token" instead of failing.
type TokenStore interface {
	Save(token string)
	Read() (string, bool)
	Clear()
}

// MemoryStore keeps the token for the life of the process.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Save(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *MemoryStore) Read() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// NopStore never holds a token. Used when no persistent storage is available.
type NopStore struct{}

func (NopStore) Save(string)          {}
func (NopStore) Read() (string, bool) { return "", false }
func (NopStore) Clear()               {}
