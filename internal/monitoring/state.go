// internal/monitoring/state.go
package monitoring

import (
	"hash/fnv"
	"sync"
	"time"

	"webmonitor/internal/database"
)

type Transition int

const (
	NoTransition Transition = iota
	TransitionDown
	TransitionUp
)

func (t Transition) String() string {
	switch t {
	case TransitionDown:
		return "down"
	case TransitionUp:
		return "up"
	default:
		return "none"
	}
}

// Kind maps a transition onto the notification kind it produces.
func (t Transition) Kind() database.NotificationKind {
	if t == TransitionUp {
		return database.NotificationUp
	}
	return database.NotificationDown
}

// StateEntry is the last classification seen for a website.
type StateEntry struct {
	IsUp       bool
	ObservedAt time.Time
}

// StateStore holds last-known state per website. Swap must be atomic per id.
type StateStore interface {
	// Swap stores next for id and returns the previous entry, if there was one.
	Swap(id string, next StateEntry) (prev StateEntry, existed bool)
	Delete(id string)
	Keys() []string
}

const stateShards = 32

type stateShard struct {
	mu      sync.Mutex
	entries map[string]StateEntry
}

// MemoryStateStore is a process-local StateStore sharded by website id, so
// unrelated websites never contend on the same lock.
type MemoryStateStore struct {
	shards [stateShards]*stateShard
}

func NewMemoryStateStore() *MemoryStateStore {
	s := &MemoryStateStore{}
	for i := range s.shards {
		s.shards[i] = &stateShard{entries: make(map[string]StateEntry)}
	}
	return s
}

func (s *MemoryStateStore) shard(id string) *stateShard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return s.shards[h.Sum32()%stateShards]
}

func (s *MemoryStateStore) Swap(id string, next StateEntry) (StateEntry, bool) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	prev, existed := sh.entries[id]
	sh.entries[id] = next
	return prev, existed
}

func (s *MemoryStateStore) Delete(id string) {
	sh := s.shard(id)
	sh.mu.Lock()
	delete(sh.entries, id)
	sh.mu.Unlock()
}

func (s *MemoryStateStore) Keys() []string {
	var keys []string
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id := range sh.entries {
			keys = append(keys, id)
		}
		sh.mu.Unlock()
	}
	return keys
}

// StateTracker turns a stream of classifications into transitions. The first
// observation of a website is a baseline and never a transition.
type StateTracker struct {
	store StateStore
	now   func() time.Time
}

func NewStateTracker(store StateStore) *StateTracker {
	if store == nil {
		store = NewMemoryStateStore()
	}
	return &StateTracker{store: store, now: time.Now}
}

func (t *StateTracker) Observe(websiteID string, isUp bool) Transition {
	prev, existed := t.store.Swap(websiteID, StateEntry{IsUp: isUp, ObservedAt: t.now()})
	if !existed || prev.IsUp == isUp {
		return NoTransition
	}
	if isUp {
		return TransitionUp
	}
	return TransitionDown
}

// Forget drops the state of a removed website.
func (t *StateTracker) Forget(websiteID string) {
	t.store.Delete(websiteID)
}

// Prune drops state for every website not in known and returns how many
// entries were removed.
func (t *StateTracker) Prune(known map[string]struct{}) int {
	removed := 0
	for _, id := range t.store.Keys() {
		if _, ok := known[id]; !ok {
			t.store.Delete(id)
			removed++
		}
	}
	return removed
}

func (t *StateTracker) Len() int {
	return len(t.store.Keys())
}
