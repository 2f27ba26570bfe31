package requestlog

import (
	"strings"
	"sync"
)

// Logger records entries.
type Logger interface {
	Log(entry *Entry)
}

// Store is a queryable request history.
type Store interface {
	Logger

	// Get retrieves an entry by ID, or nil.
	Get(id string) *Entry

	// List returns matching entries, newest first.
	List(filter *Filter) []*Entry

	// Clear removes all entries.
	Clear()

	// Count returns the number of entries held.
	Count() int
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	Method string
	// Path matches by prefix.
	Path   string
	Route  string
	Status int
	// Failed keeps only failed exchanges when true.
	Failed bool
	Limit  int
	Offset int
}

func (f *Filter) match(e *Entry) bool {
	if f == nil {
		return true
	}
	switch {
	case f.Method != "" && !strings.EqualFold(f.Method, e.Method):
		return false
	case f.Path != "" && !strings.HasPrefix(e.Path, f.Path):
		return false
	case f.Route != "" && f.Route != e.Route:
		return false
	case f.Status != 0 && f.Status != e.Status:
		return false
	case f.Failed && !e.Failed():
		return false
	}
	return true
}

// MemoryStore keeps the most recent entries in a fixed-size ring.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	next    int
	full    bool
}

// NewMemoryStore creates a store holding up to capacity entries. A
// non-positive capacity defaults to 1000.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryStore{entries: make([]*Entry, capacity)}
}

// Log records entry, evicting the oldest one when full.
func (s *MemoryStore) Log(entry *Entry) {
	if entry == nil {
		return
	}
	s.mu.Lock()
	s.entries[s.next] = entry
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()
}

// Get implements Store.
func (s *MemoryStore) Get(id string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e != nil && e.ID == id {
			return e
		}
	}
	return nil
}

// List implements Store.
func (s *MemoryStore) List(filter *Filter) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Entry
	skipped := 0
	n := s.countLocked()
	for i := 1; i <= n; i++ {
		e := s.entries[(s.next-i+len(s.entries))%len(s.entries)]
		if !filter.match(e) {
			continue
		}
		if filter != nil && skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, e)
		if filter != nil && filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}

// Clear implements Store.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	clear(s.entries)
	s.next, s.full = 0, false
	s.mu.Unlock()
}

// Count implements Store.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked()
}

func (s *MemoryStore) countLocked() int {
	if s.full {
		return len(s.entries)
	}
	return s.next
}
