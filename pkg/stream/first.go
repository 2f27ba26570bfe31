package stream

import (
	"context"
	"errors"
	"sync"
)

// ErrNoValues is returned by First when the observable completes without
// emitting.
var ErrNoValues = errors.New("stream: completed without values")

// First subscribes to obs and blocks until its first value, its first error,
// completion without values (ErrNoValues) or ctx is done.
func First[T any](ctx context.Context, obs Observable[T]) (T, error) {
	type result struct {
		v   T
		err error
	}
	res := make(chan result, 1)
	var once sync.Once
	deliver := func(r result) {
		once.Do(func() { res <- r })
	}

	sub := obs.Subscribe(Funcs[T]{
		OnNext:     func(v T) { deliver(result{v: v}) },
		OnError:    func(err error) { deliver(result{err: err}) },
		OnComplete: func() { deliver(result{err: ErrNoValues}) },
	})
	defer sub.Unsubscribe()

	select {
	case r := <-res:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
