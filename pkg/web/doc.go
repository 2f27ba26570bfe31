// Package web is the request/response model shared by the dispatcher
// (package mux), the packet-stream router and the operators in package flow.
//
// A Request wraps *http.Request with route params and a per-request
// extension bag (Ext) that every handler, branch and nested router touching
// the same request sees by reference.
//
// A Response wraps http.ResponseWriter with a write-once capability: the
// first Send, SendStatus or SendJSON wins, HasResponded flips to true for
// good, and the finish event fires. Later sends write nothing and return
// ErrAlreadyResponded.
//
// Handlers follow the continuation style of the dispatcher:
//
//	web.HandlerFunc(func(req *web.Request, res *web.Response, next web.NextFunc) {
//	    if req.Param("place") != "machine" {
//	        _ = res.Send("Wrong address")
//	        return
//	    }
//	    next(nil)
//	})
//
// Calling next(nil) hands the request to the next matching handler; calling
// next(err) hands it to the dispatcher's error handler.
package web
