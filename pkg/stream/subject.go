package stream

import "sync"

// Subject is a hot, multicast Observable and an Observer at the same time.
// Values pushed with Next reach the observers subscribed at that moment.
// Late subscribers to a terminated Subject receive the terminal
// notification immediately.
type Subject[T any] struct {
	mu        sync.RWMutex
	observers []subjectEntry[T]
	seq       uint64
	stopped   bool
	err       error
	onIdle    []func()
	onActive  []func()
}

type subjectEntry[T any] struct {
	id  uint64
	obs Observer[T]
}

// NewSubject creates an empty Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe adds o to the observers.
func (s *Subject[T]) Subscribe(o Observer[T]) Subscription {
	s.mu.Lock()
	if s.stopped {
		err := s.err
		s.mu.Unlock()
		if err != nil {
			o.Error(err)
		} else {
			o.Complete()
		}
		return closedSubscription{}
	}
	s.seq++
	id := s.seq
	s.observers = append(s.observers, subjectEntry[T]{id: id, obs: o})
	var hooks []func()
	if len(s.observers) == 1 {
		hooks = append(hooks, s.onActive...)
	}
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return newFuncSubscription(func() { s.remove(id) })
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	idx := -1
	for i, e := range s.observers {
		if e.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.observers = append(s.observers[:idx:idx], s.observers[idx+1:]...)
	var hooks []func()
	if len(s.observers) == 0 {
		hooks = append(hooks, s.onIdle...)
	}
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func (s *Subject[T]) snapshot() []subjectEntry[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return nil
	}
	out := make([]subjectEntry[T], len(s.observers))
	copy(out, s.observers)
	return out
}

// Next delivers v to every current observer, in subscription order, and
// reports how many observers it was delivered to.
func (s *Subject[T]) Next(v T) int {
	entries := s.snapshot()
	for _, e := range entries {
		e.obs.Next(v)
	}
	return len(entries)
}

// Error terminates the Subject and every observer with err.
func (s *Subject[T]) Error(err error) {
	s.terminate(err)
}

// Complete terminates the Subject and every observer.
func (s *Subject[T]) Complete() {
	s.terminate(nil)
}

func (s *Subject[T]) terminate(err error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.err = err
	entries := s.observers
	s.observers = nil
	var hooks []func()
	if len(entries) > 0 {
		hooks = append(hooks, s.onIdle...)
	}
	s.mu.Unlock()

	for _, e := range entries {
		if err != nil {
			e.obs.Error(err)
		} else {
			e.obs.Complete()
		}
	}
	for _, fn := range hooks {
		fn()
	}
}

// Observers returns the number of current observers.
func (s *Subject[T]) Observers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// Stopped reports whether the Subject has errored or completed.
func (s *Subject[T]) Stopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

// OnIdle registers fn to run every time the observer count drops to zero.
func (s *Subject[T]) OnIdle(fn func()) {
	s.mu.Lock()
	s.onIdle = append(s.onIdle, fn)
	s.mu.Unlock()
}

// OnActive registers fn to run every time the observer count rises from
// zero to one.
func (s *Subject[T]) OnActive(fn func()) {
	s.mu.Lock()
	s.onActive = append(s.onActive, fn)
	s.mu.Unlock()
}
