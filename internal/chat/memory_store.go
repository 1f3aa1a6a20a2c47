package chat

import (
	"context"
	"sync"
)

// MemoryStore keeps turns in process memory. Users are known either through
// AddUser or through the optional directory.
type MemoryStore struct {
	mu        sync.RWMutex
	turns     map[string][]Turn
	directory UserDirectory
}

func NewMemoryStore(directory UserDirectory) *MemoryStore {
	return &MemoryStore{
		turns:     make(map[string][]Turn),
		directory: directory,
	}
}

// AddUser registers a user with the given initial turns.
func (s *MemoryStore) AddUser(userID string, turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[userID] = append([]Turn{}, turns...)
}

func (s *MemoryStore) Turns(ctx context.Context, userID string) ([]Turn, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Turn{}, s.turns[userID]...), nil
}

func (s *MemoryStore) Append(ctx context.Context, userID string, turn Turn) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[userID] = append(s.turns[userID], turn)
	return nil
}

func (s *MemoryStore) RemoveLast(ctx context.Context, userID string) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.turns[userID]); n > 0 {
		s.turns[userID] = s.turns[userID][:n-1]
	}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID string) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[userID] = []Turn{}
	return nil
}

func (s *MemoryStore) ensureUser(ctx context.Context, userID string) error {
	s.mu.RLock()
	_, known := s.turns[userID]
	s.mu.RUnlock()
	if known {
		return nil
	}
	if s.directory == nil {
		return ErrUserNotFound
	}
	ok, err := s.directory.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	s.mu.Lock()
	if _, exists := s.turns[userID]; !exists {
		s.turns[userID] = []Turn{}
	}
	s.mu.Unlock()
	return nil
}
