package storage

import (
	"context"
	"sync"
)

// memStore backs the "none" driver and tests.
type memStore struct {
	mu    sync.RWMutex
	chats map[int64]ChatRecord
}

// NewMemory returns a process-lifetime in-memory store.
func NewMemory() Store {
	return &memStore{chats: map[int64]ChatRecord{}}
}

func (s *memStore) LoadChat(ctx context.Context, chatID int64) (ChatRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.chats[chatID]
	return rec, ok, nil
}

func (s *memStore) SaveChat(ctx context.Context, chatID int64, rec ChatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = rec
	return nil
}

func (s *memStore) DeleteChat(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, chatID)
	return nil
}

func (s *memStore) ListChats(ctx context.Context) (map[int64]ChatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]ChatRecord, len(s.chats))
	for id, rec := range s.chats {
		out[id] = rec
	}
	return out, nil
}

func (s *memStore) Compact(ctx context.Context) error { return nil }
func (s *memStore) Close() error                      { return nil }
