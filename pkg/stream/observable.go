package stream

import (
	"sync"
	"sync/atomic"
)

// Observer receives the notifications of an Observable.
type Observer[T any] interface {
	Next(value T)
	Error(err error)
	Complete()
}

// Funcs adapts plain functions to an Observer. Nil fields are ignored.
type Funcs[T any] struct {
	OnNext     func(T)
	OnError    func(error)
	OnComplete func()
}

// Next calls OnNext.
func (f Funcs[T]) Next(v T) {
	if f.OnNext != nil {
		f.OnNext(v)
	}
}

// Error calls OnError.
func (f Funcs[T]) Error(err error) {
	if f.OnError != nil {
		f.OnError(err)
	}
}

// Complete calls OnComplete.
func (f Funcs[T]) Complete() {
	if f.OnComplete != nil {
		f.OnComplete()
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	// Unsubscribe detaches the observer and releases the producer.
	// It is safe to call more than once.
	Unsubscribe()
	// Closed reports whether the subscription has ended, either by
	// Unsubscribe or because the stream terminated.
	Closed() bool
}

// Observable is a source of values.
type Observable[T any] interface {
	Subscribe(o Observer[T]) Subscription
}

// Producer starts producing values into o and returns an optional teardown.
type Producer[T any] func(o Observer[T]) (teardown func())

// Operator transforms one observable into another.
type Operator[T, R any] func(Observable[T]) Observable[R]

// New creates a cold Observable that runs p on every Subscribe.
func New[T any](p Producer[T]) Observable[T] {
	return producer[T](p)
}

type producer[T any] Producer[T]

func (p producer[T]) Subscribe(o Observer[T]) Subscription {
	s := newSubscriber(o)
	s.setTeardown(p(s))
	return s
}

// subscriber guards an Observer: nothing is delivered after a terminal
// notification and the teardown runs exactly once.
type subscriber[T any] struct {
	dst    Observer[T]
	closed atomic.Bool

	mu       sync.Mutex
	teardown func()
	released bool
}

func newSubscriber[T any](dst Observer[T]) *subscriber[T] {
	return &subscriber[T]{dst: dst}
}

func (s *subscriber[T]) Next(v T) {
	if s.closed.Load() {
		return
	}
	s.dst.Next(v)
}

func (s *subscriber[T]) Error(err error) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.dst.Error(err)
	s.release()
}

func (s *subscriber[T]) Complete() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.dst.Complete()
	s.release()
}

func (s *subscriber[T]) Unsubscribe() {
	s.closed.Store(true)
	s.release()
}

func (s *subscriber[T]) Closed() bool {
	return s.closed.Load()
}

// setTeardown records the producer's teardown. If the subscriber already
// terminated while the producer was running, the teardown runs immediately.
func (s *subscriber[T]) setTeardown(td func()) {
	if td == nil {
		return
	}
	s.mu.Lock()
	if s.closed.Load() {
		s.released = true
		s.mu.Unlock()
		td()
		return
	}
	s.teardown = td
	s.mu.Unlock()
}

func (s *subscriber[T]) release() {
	s.mu.Lock()
	if s.released || s.teardown == nil {
		s.mu.Unlock()
		return
	}
	s.released = true
	td := s.teardown
	s.teardown = nil
	s.mu.Unlock()
	td()
}

// closedSubscription is returned when subscribing to a terminated source.
type closedSubscription struct{}

func (closedSubscription) Unsubscribe() {}
func (closedSubscription) Closed() bool { return true }

// funcSubscription runs fn once on Unsubscribe.
type funcSubscription struct {
	once   sync.Once
	closed atomic.Bool
	fn     func()
}

func newFuncSubscription(fn func()) *funcSubscription {
	return &funcSubscription{fn: fn}
}

func (f *funcSubscription) Unsubscribe() {
	f.once.Do(func() {
		f.closed.Store(true)
		f.fn()
	})
}

func (f *funcSubscription) Closed() bool {
	return f.closed.Load()
}
