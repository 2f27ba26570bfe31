// Package streamtest provides helpers for testing code built on package stream.
package streamtest

import (
	"sync"
	"time"
)

// Recorder is an Observer that records every notification.
//
// Recorder is safe under concurrent Next calls.
type Recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	err       error
	completed bool
	changed   chan struct{}
}

// NewRecorder constructs a Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{changed: make(chan struct{}, 1)}
}

func (r *Recorder[T]) notify() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// Next records v.
func (r *Recorder[T]) Next(v T) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	r.notify()
}

// Error records err.
func (r *Recorder[T]) Error(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	r.notify()
}

// Complete records completion.
func (r *Recorder[T]) Complete() {
	r.mu.Lock()
	r.completed = true
	r.mu.Unlock()
	r.notify()
}

// Values returns a snapshot copy of the recorded values.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]T, len(r.values))
	copy(cp, r.values)
	return cp
}

// Err returns the recorded error, if any.
func (r *Recorder[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Completed reports whether completion was recorded.
func (r *Recorder[T]) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// Terminated reports whether an error or completion was recorded.
func (r *Recorder[T]) Terminated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed || r.err != nil
}

// WaitFor blocks until cond holds or timeout elapses, and reports whether
// cond held.
func (r *Recorder[T]) WaitFor(timeout time.Duration, cond func(*Recorder[T]) bool) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if cond(r) {
			return true
		}
		select {
		case <-r.changed:
		case <-deadline.C:
			return cond(r)
		}
	}
}

// WaitValues blocks until at least n values were recorded or timeout elapses.
func (r *Recorder[T]) WaitValues(n int, timeout time.Duration) bool {
	return r.WaitFor(timeout, func(r *Recorder[T]) bool { return len(r.Values()) >= n })
}

// WaitTerminated blocks until an error or completion was recorded or timeout
// elapses.
func (r *Recorder[T]) WaitTerminated(timeout time.Duration) bool {
	return r.WaitFor(timeout, (*Recorder[T]).Terminated)
}
