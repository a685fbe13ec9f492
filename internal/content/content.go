// Package content defines the boundary between the dialog/scheduling
// core and the report producers. The core only ever addresses a
// producer by its category name through the Registry and relays the
// opaque Reference it gets back.
package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownCategory is returned by checked lookups; a name that isn't
// registered can never reach a handler.
var ErrUnknownCategory = errors.New("content: unknown category")

// Reference is an opaque deliverable: an optional pre-rendered image
// plus caption text. The core passes it to the transport unmodified.
type Reference struct {
	ImagePath string
	Caption   string
}

// Handler produces the current snapshot for a category.
type Handler interface {
	Snapshot(ctx context.Context, chatID int64) (Reference, error)
}

// HistoryProvider is an optional capability: a period-bounded view.
// days <= 0 requests the full available range.
type HistoryProvider interface {
	History(ctx context.Context, chatID int64, days int) (Reference, error)
}

// ExploreProvider is an optional capability: named sub-views of a
// category the user can drill into.
type ExploreProvider interface {
	Targets() []string
	Explore(ctx context.Context, chatID int64, target string) (Reference, error)
}

// Registry is the static category -> handler dispatch table, populated
// once at startup.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(name string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[name]; dup {
		return fmt.Errorf("content: category %q registered twice", name)
	}
	r.handlers[name] = h
	return nil
}

func (r *Registry) Lookup(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return h, nil
}

// Names returns registered categories, sorted for stable menus.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
