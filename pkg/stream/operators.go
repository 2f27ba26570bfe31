package stream

import (
	"sync"
	"sync/atomic"
	"time"
)

// Pipe applies ops to src from left to right.
func Pipe[T any](src Observable[T], ops ...Operator[T, T]) Observable[T] {
	out := src
	for _, op := range ops {
		out = op(out)
	}
	return out
}

// Lift builds an operator from a function that wraps the downstream observer.
// The returned observer receives the source notifications; completion and
// errors it does not intercept must be forwarded by the caller.
func Lift[T, R any](wrap func(dst Observer[R]) Observer[T]) Operator[T, R] {
	return func(src Observable[T]) Observable[R] {
		return New(func(dst Observer[R]) func() {
			return src.Subscribe(wrap(dst)).Unsubscribe
		})
	}
}

// Map transforms every value with fn.
func Map[T, R any](fn func(T) R) Operator[T, R] {
	return Lift(func(dst Observer[R]) Observer[T] {
		return Funcs[T]{
			OnNext:     func(v T) { dst.Next(fn(v)) },
			OnError:    dst.Error,
			OnComplete: dst.Complete,
		}
	})
}

// Filter forwards only the values for which keep returns true.
func Filter[T any](keep func(T) bool) Operator[T, T] {
	return Lift(func(dst Observer[T]) Observer[T] {
		return Funcs[T]{
			OnNext: func(v T) {
				if keep(v) {
					dst.Next(v)
				}
			},
			OnError:    dst.Error,
			OnComplete: dst.Complete,
		}
	})
}

// Tap runs fn for every value before forwarding it unchanged.
func Tap[T any](fn func(T)) Operator[T, T] {
	return Map(func(v T) T {
		fn(v)
		return v
	})
}

// Delay re-emits every value after d, from a timer goroutine.
func Delay[T any](d time.Duration) Operator[T, T] {
	return DelayWhen(func(T) time.Duration { return d })
}

// DelayWhen re-emits every value after the duration returned by fn.
// Non-positive durations forward synchronously. Completion is delayed until
// every pending value has been emitted; errors are forwarded at once.
func DelayWhen[T any](fn func(T) time.Duration) Operator[T, T] {
	return func(src Observable[T]) Observable[T] {
		return New(func(dst Observer[T]) func() {
			var (
				mu      sync.Mutex
				timers  = make(map[*time.Timer]struct{})
				pending sync.WaitGroup
				stopped atomic.Bool
			)

			sub := src.Subscribe(Funcs[T]{
				OnNext: func(v T) {
					d := fn(v)
					if d <= 0 {
						dst.Next(v)
						return
					}
					pending.Add(1)
					var t *time.Timer
					mu.Lock()
					t = time.AfterFunc(d, func() {
						defer pending.Done()
						mu.Lock()
						delete(timers, t)
						mu.Unlock()
						if !stopped.Load() {
							dst.Next(v)
						}
					})
					timers[t] = struct{}{}
					mu.Unlock()
				},
				OnError: dst.Error,
				OnComplete: func() {
					go func() {
						pending.Wait()
						dst.Complete()
					}()
				},
			})

			return func() {
				stopped.Store(true)
				sub.Unsubscribe()
				mu.Lock()
				for t := range timers {
					if t.Stop() {
						pending.Done()
					}
					delete(timers, t)
				}
				mu.Unlock()
			}
		})
	}
}

// Merge emits the values of all sources as they arrive. It errors as soon as
// one source errors and completes once every source has completed.
func Merge[T any](sources ...Observable[T]) Observable[T] {
	if len(sources) == 0 {
		return Empty[T]()
	}
	return New(func(dst Observer[T]) func() {
		var remaining atomic.Int64
		remaining.Store(int64(len(sources)))

		subs := make([]Subscription, 0, len(sources))
		for _, src := range sources {
			subs = append(subs, src.Subscribe(Funcs[T]{
				OnNext:  dst.Next,
				OnError: dst.Error,
				OnComplete: func() {
					if remaining.Add(-1) == 0 {
						dst.Complete()
					}
				},
			}))
		}

		return func() {
			for _, s := range subs {
				s.Unsubscribe()
			}
		}
	})
}
