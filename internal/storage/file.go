package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"reportbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend: one JSON snapshot
// holding every chat record, rewritten atomically (tmp + rename) on each
// mutation. Fine for the bot's scale; sqlite is the step up.
type fileStore struct {
	log  logx.Logger
	path string

	mu    sync.Mutex
	chats map[int64]ChatRecord
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{log: log, path: path, chats: map[int64]ChatRecord{}}
	if err := s.load(); err != nil {
		return nil, err
	}
	log.Info("file store opened", logx.String("path", path), logx.Int("chats", len(s.chats)))
	return s, nil
}

func (s *fileStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var raw map[string]ChatRecord
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, rec := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			s.log.Warn("skipping bad chat key in snapshot", logx.String("key", k))
			continue
		}
		s.chats[id] = rec
	}
	return nil
}

// flushLocked rewrites the snapshot. Caller holds s.mu.
func (s *fileStore) flushLocked() error {
	raw := make(map[string]ChatRecord, len(s.chats))
	for id, rec := range s.chats {
		raw[strconv.FormatInt(id, 10)] = rec
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) LoadChat(ctx context.Context, chatID int64) (ChatRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.chats[chatID]
	return rec, ok, nil
}

func (s *fileStore) SaveChat(ctx context.Context, chatID int64, rec ChatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.chats[chatID]
	s.chats[chatID] = rec
	if err := s.flushLocked(); err != nil {
		// keep memory consistent with disk
		if had {
			s.chats[chatID] = prev
		} else {
			delete(s.chats, chatID)
		}
		return err
	}
	return nil
}

func (s *fileStore) DeleteChat(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.chats[chatID]
	if !had {
		return nil
	}
	delete(s.chats, chatID)
	if err := s.flushLocked(); err != nil {
		s.chats[chatID] = prev
		return err
	}
	return nil
}

func (s *fileStore) ListChats(ctx context.Context) (map[int64]ChatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]ChatRecord, len(s.chats))
	for id, rec := range s.chats {
		out[id] = rec
	}
	return out, nil
}

func (s *fileStore) Compact(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *fileStore) Close() error { return nil }
