package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reportbot/internal/schedule"
	"reportbot/pkg/logx"
)

// Store tracks every chat's registered notifications and keeps each
// entry paired with exactly one live scheduler job.
//
// All mutating operations for a chat run under that chat's lock, so
// "schedule job + append entry" and "cancel job + drop entry" are
// atomic pairs: a fire can never observe an entry whose job was
// cancelled, and a removal can never leave an orphaned job running.
// Operations on distinct chats proceed in parallel.
type Store struct {
	log     logx.Logger
	sched   *schedule.Scheduler
	deliver DeliverFunc

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
	chats map[int64][]Notification
}

func NewStore(sched *schedule.Scheduler, deliver DeliverFunc, log logx.Logger) *Store {
	return &Store{
		log:     log,
		sched:   sched,
		deliver: deliver,
		locks:   map[int64]*sync.Mutex{},
		chats:   map[int64][]Notification{},
	}
}

// lockChat returns the chat's critical-section unlock func.
func (s *Store) lockChat(chatID int64) func() {
	s.mu.Lock()
	l := s.locks[chatID]
	if l == nil {
		l = &sync.Mutex{}
		s.locks[chatID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Add registers a notification for the chat and schedules its job.
// Fails with ErrDuplicateCategory if the category already has a live
// entry; the existing registration is never overwritten.
func (s *Store) Add(chatID int64, category string, rec schedule.Recurrence, humanView string) (Notification, error) {
	defer s.lockChat(chatID)()

	s.mu.Lock()
	list := s.chats[chatID]
	s.mu.Unlock()

	for _, n := range list {
		if n.Category == category {
			return Notification{}, fmt.Errorf("%w: %s", ErrDuplicateCategory, category)
		}
	}

	id, cat := chatID, category
	handle := s.sched.Schedule(rec, fmt.Sprintf("notify:%d:%s", chatID, category),
		func(ctx context.Context) error {
			return s.deliver(ctx, id, cat)
		})

	n := Notification{Category: category, Recurrence: rec, HumanView: humanView, Handle: handle}

	s.mu.Lock()
	s.chats[chatID] = append(s.chats[chatID], n)
	s.mu.Unlock()

	s.log.Info("notification added",
		logx.Int64("chat_id", chatID),
		logx.String("category", category),
		logx.String("view", humanView))
	return n, nil
}

// List returns the chat's notifications in insertion order. The order
// is user-visible: removal indices refer to it.
func (s *Store) List(chatID int64) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.chats[chatID]...)
}

// Has reports whether the chat already carries the category.
func (s *Store) Has(chatID int64, category string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.chats[chatID] {
		if n.Category == category {
			return true
		}
	}
	return false
}

// Len returns the chat's notification count.
func (s *Store) Len(chatID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats[chatID])
}

// RemoveAt cancels and removes the notification at the 1-based index.
// Dropping the last entry removes the chat from the store entirely.
func (s *Store) RemoveAt(chatID int64, index int) (Notification, error) {
	defer s.lockChat(chatID)()

	s.mu.Lock()
	list := s.chats[chatID]
	s.mu.Unlock()

	if index < 1 || index > len(list) {
		return Notification{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(list))
	}

	n := list[index-1]
	s.sched.Cancel(n.Handle)

	rest := append(append([]Notification(nil), list[:index-1]...), list[index:]...)
	s.mu.Lock()
	if len(rest) == 0 {
		delete(s.chats, chatID)
	} else {
		s.chats[chatID] = rest
	}
	s.mu.Unlock()

	s.log.Info("notification removed",
		logx.Int64("chat_id", chatID),
		logx.String("category", n.Category))
	return n, nil
}

// RemoveCategory cancels and removes the chat's entry for category.
// Reports whether an entry existed.
func (s *Store) RemoveCategory(chatID int64, category string) bool {
	defer s.lockChat(chatID)()

	s.mu.Lock()
	list := s.chats[chatID]
	s.mu.Unlock()

	for i, n := range list {
		if n.Category != category {
			continue
		}
		s.sched.Cancel(n.Handle)
		rest := append(append([]Notification(nil), list[:i]...), list[i+1:]...)
		s.mu.Lock()
		if len(rest) == 0 {
			delete(s.chats, chatID)
		} else {
			s.chats[chatID] = rest
		}
		s.mu.Unlock()
		return true
	}
	return false
}

// RemoveAll cancels every job for the chat and drops its entry,
// returning the removed notifications in their former order.
func (s *Store) RemoveAll(chatID int64) []Notification {
	defer s.lockChat(chatID)()

	s.mu.Lock()
	list := s.chats[chatID]
	delete(s.chats, chatID)
	s.mu.Unlock()

	for _, n := range list {
		s.sched.Cancel(n.Handle)
	}
	if len(list) > 0 {
		s.log.Info("notifications cleared",
			logx.Int64("chat_id", chatID),
			logx.Int("count", len(list)))
	}
	return list
}

// Restore re-registers persisted notifications at startup, rebuilding
// each entry's scheduler job. Invalid or duplicate records are skipped.
func (s *Store) Restore(chatID int64, saved []Saved) int {
	restored := 0
	for _, sv := range saved {
		if err := sv.Recurrence.Validate(); err != nil {
			s.log.Warn("skipping invalid saved notification",
				logx.Int64("chat_id", chatID),
				logx.String("category", sv.Category),
				logx.Err(err))
			continue
		}
		if _, err := s.Add(chatID, sv.Category, sv.Recurrence, sv.HumanView); err != nil {
			s.log.Warn("skipping saved notification",
				logx.Int64("chat_id", chatID),
				logx.String("category", sv.Category),
				logx.Err(err))
			continue
		}
		restored++
	}
	return restored
}

// Export returns the chat's notifications in their persistence shape.
func (s *Store) Export(chatID int64) []Saved {
	list := s.List(chatID)
	out := make([]Saved, 0, len(list))
	for _, n := range list {
		out = append(out, Saved{Category: n.Category, Recurrence: n.Recurrence, HumanView: n.HumanView})
	}
	return out
}

// NextFire reports the pending fire time for a live notification job.
func (s *Store) NextFire(n Notification) (time.Time, bool) {
	return s.sched.NextFire(n.Handle)
}
