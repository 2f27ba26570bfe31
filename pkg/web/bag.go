package web

import (
	"encoding/json"
	"maps"
	"sync"
)

// Bag is the mutable per-request extension bag. Keys are unique per request
// and the bag is shared by reference by everything handling the request.
// A Bag is safe for concurrent use.
type Bag struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewBag creates an empty Bag.
func NewBag() *Bag {
	return &Bag{data: make(map[string]any)}
}

// Get returns the value stored under key.
func (b *Bag) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok
}

// Value returns the value stored under key, or nil.
func (b *Bag) Value(key string) any {
	v, _ := b.Get(key)
	return v
}

// String returns the value under key if it is a string.
func (b *Bag) String(key string) string {
	s, _ := b.Value(key).(string)
	return s
}

// Set stores v under key.
func (b *Bag) Set(key string, v any) {
	b.mu.Lock()
	b.data[key] = v
	b.mu.Unlock()
}

// Delete removes key.
func (b *Bag) Delete(key string) {
	b.mu.Lock()
	delete(b.data, key)
	b.mu.Unlock()
}

// LoadOrStore returns the value under key, storing the result of create
// first if the key is absent. create runs at most once per key and under the
// bag's lock, so it must not touch the bag.
func (b *Bag) LoadOrStore(key string, create func() any) any {
	b.mu.RLock()
	v, ok := b.data[key]
	b.mu.RUnlock()
	if ok {
		return v
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.data[key]; ok {
		return v
	}
	v = create()
	b.data[key] = v
	return v
}

// Len returns the number of keys.
func (b *Bag) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Snapshot returns a copy of the bag's contents.
func (b *Bag) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.data)
}

// MarshalJSON encodes a snapshot of the bag as a JSON object.
func (b *Bag) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Snapshot())
}
