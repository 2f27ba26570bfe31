// Package mux is a continuation-style HTTP dispatcher.
//
// Handlers are registered in order and tried in that order. A matching
// handler either answers the request or calls next to hand it to the next
// matching registration; next(err) skips to the error handler. A request
// nobody answers gets the not-found handler.
//
//	m := mux.New(mux.WithLogger(logger))
//	m.Use("/", web.HandlerFunc(auth))
//	m.Register(http.MethodGet, "/users/:id", web.HandlerFunc(getUser))
//	http.ListenAndServe(":8080", m)
//
// A Mux is also a web.Handler, so it can be mounted inside another Mux:
// when its own chain is exhausted it continues the parent's chain.
package mux
