package remotesync

import (
	"context"
	"slices"
	"sync"

	"github.com/louisbranch/fairscore/internal/fair/store"
)

// Entry is a queued result and the version it was queued at. Every Put of a
// result bumps its version.
type Entry struct {
	Result  store.Result
	Version int64
}

// Backlog keeps results whose push failed, keyed by result id. The latest
// version of a result replaces older ones.
type Backlog interface {
	Put(ctx context.Context, result store.Result) error
	List(ctx context.Context) ([]Entry, error)
	// Remove drops resultID only while it is still queued at version.
	Remove(ctx context.Context, resultID string, version int64) error
}

// MemoryBacklog is a Backlog held in process memory.
type MemoryBacklog struct {
	mu    sync.Mutex
	order []string
	items map[string]Entry
}

// NewMemoryBacklog creates an empty backlog.
func NewMemoryBacklog() *MemoryBacklog {
	return &MemoryBacklog{items: map[string]Entry{}}
}

// Put implements Backlog.
func (b *MemoryBacklog) Put(_ context.Context, result store.Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev, ok := b.items[result.ID]
	if !ok {
		b.order = append(b.order, result.ID)
	}
	b.items[result.ID] = Entry{Result: result, Version: prev.Version + 1}
	return nil
}

// List implements Backlog.
func (b *MemoryBacklog) List(context.Context) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, 0, len(b.order))
	for _, resultID := range b.order {
		out = append(out, b.items[resultID])
	}
	return out, nil
}

// Remove implements Backlog.
func (b *MemoryBacklog) Remove(_ context.Context, resultID string, version int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if entry, ok := b.items[resultID]; !ok || entry.Version != version {
		return nil
	}
	delete(b.items, resultID)
	b.order = slices.DeleteFunc(b.order, func(v string) bool { return v == resultID })
	return nil
}

var _ Backlog = (*MemoryBacklog)(nil)
