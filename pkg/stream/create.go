package stream

// Of emits the given values in order, then completes.
func Of[T any](values ...T) Observable[T] {
	return New(func(o Observer[T]) func() {
		for _, v := range values {
			o.Next(v)
		}
		o.Complete()
		return nil
	})
}

// Empty completes immediately without emitting.
func Empty[T any]() Observable[T] {
	return New(func(o Observer[T]) func() {
		o.Complete()
		return nil
	})
}

// Never neither emits nor terminates.
func Never[T any]() Observable[T] {
	return New(func(Observer[T]) func() { return nil })
}

// Throw errors immediately with err.
func Throw[T any](err error) Observable[T] {
	return New(func(o Observer[T]) func() {
		o.Error(err)
		return nil
	})
}

// FromChan emits every value received from ch and completes when ch is
// closed. Unsubscribing stops the reader goroutine; the channel is not drained.
func FromChan[T any](ch <-chan T) Observable[T] {
	return New(func(o Observer[T]) func() {
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				case v, ok := <-ch:
					if !ok {
						o.Complete()
						return
					}
					o.Next(v)
				}
			}
		}()
		return func() { close(done) }
	})
}
