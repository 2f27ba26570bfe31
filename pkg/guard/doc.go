// Package guard provides ready-made predicates for the gate operators of
// package flow:
//
//	admin, _ := guard.Expr(`headers["X-Role"] == "admin"`)
//	stream.Pipe(r.Post("/users"),
//	    flow.Authorize(guard.HMACBearer(secret), flow.WithMessage("login first")),
//	    flow.Allow(admin),
//	    flow.Validate(guard.MustSchema(userSchema)),
//	    flow.JSON(createUser),
//	).Subscribe(flow.Sink(logger))
//
// Predicates that read the request body decode it once and keep the decoded
// value in the request's extension bag under BodyKey; the raw body is put
// back so later handlers can read it too.
package guard
