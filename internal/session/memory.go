package session

import (
	"context"
	"sync"
	"time"

	"github.com/stemsi/curricuforge/internal/view"
)

// MemoryStore is a process-local Store. Entries idle for longer than the TTL
// are swept, except sessions that are still Generating.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]view.Snapshot
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]view.Snapshot),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (view.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(id), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn UpdateFunc) (view.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current(id)
	state, err := cur.State()
	if err != nil {
		return view.Snapshot{}, err
	}
	next, err := fn(state)
	if err != nil {
		return cur, err
	}

	snap := view.ToSnapshot(next, s.now())
	if next.Status() == view.StatusIdle {
		delete(s.entries, id)
	} else {
		s.entries[id] = snap
	}
	return snap, nil
}

// current must be called with mu held.
func (s *MemoryStore) current(id string) view.Snapshot {
	snap, ok := s.entries[id]
	if !ok || s.expired(snap) {
		return view.ToSnapshot(view.Initial(), time.Time{})
	}
	return snap
}

func (s *MemoryStore) expired(snap view.Snapshot) bool {
	if s.ttl <= 0 || snap.Status == view.StatusGenerating {
		return false
	}
	return s.now().Sub(snap.UpdatedAt) > s.ttl
}

// Sweep drops expired entries and reports how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, snap := range s.entries {
		if s.expired(snap) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Len reports the number of stored, non-Idle sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// MemoryBroker fans snapshots out to in-process subscribers.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[string]map[*memorySub]struct{}
	buffer int
}

type memorySub struct {
	ch     chan view.Snapshot
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs:   make(map[string]map[*memorySub]struct{}),
		buffer: 8,
	}
}

// Publish never blocks: a subscriber whose buffer is full misses the update
// and catches up on the next one.
func (b *MemoryBroker) Publish(_ context.Context, id string, snap view.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[id] {
		select {
		case sub.ch <- snap:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, id string) (<-chan view.Snapshot, func(), error) {
	sub := &memorySub{ch: make(chan view.Snapshot, b.buffer)}

	b.mu.Lock()
	if b.subs[id] == nil {
		b.subs[id] = make(map[*memorySub]struct{})
	}
	b.subs[id][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub.closed {
			return
		}
		sub.closed = true
		delete(b.subs[id], sub)
		if len(b.subs[id]) == 0 {
			delete(b.subs, id)
		}
		close(sub.ch)
	}
	return sub.ch, cancel, nil
}
