// Package stream provides hot, multicast reactive streams for Go.
//
// An Observable delivers values to an Observer until it errors or completes.
// Observables built with New are cold: every Subscribe runs the producer
// again. A Subject is hot: values pushed with Next reach whoever is subscribed
// at that moment, with no replay.
//
// # Grammar
//
// Every observer handed out by this package is guarded: after Error or
// Complete nothing else is delivered, and the producer's teardown runs exactly
// once, either on termination or on Unsubscribe.
//
// # Concurrency
//
// Unlike single-threaded reactive libraries, values may arrive concurrently
// from different goroutines (for instance one per HTTP request). Operators in
// this package are safe under concurrent Next calls and never hold a lock
// while calling downstream.
//
// # Operators
//
// Operators have the shape func(Observable[T]) Observable[R] and compose with
// Pipe:
//
//	out := stream.Pipe(src,
//	    stream.Filter(func(v int) bool { return v%2 == 0 }),
//	    stream.Tap(func(v int) { log.Println(v) }),
//	)
//
// First bridges back to blocking code: it waits for the first value of an
// observable, honoring a context.
package stream
