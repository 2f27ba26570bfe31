// Package router turns dispatcher registrations into packet streams.
//
// Every call to On (or one of the method helpers) registers a route on the
// router's dispatcher and returns a hot Subject that emits one packet per
// matching request:
//
//	r := router.New(router.WithLogger(logger))
//	stream.Pipe(r.Get("/hello/:name"),
//	    flow.Respond(func(p *flow.Packet) (any, error) {
//	        return "hello " + p.Param("name"), nil
//	    }),
//	).Subscribe(flow.Sink(logger))
//	http.ListenAndServe(":8080", r)
//
// A registration nobody subscribes to lets requests fall through to the
// next matching one. When the last subscriber of a registration goes away,
// typically because its pipeline errored, the requests still in flight in
// it are continued with ErrPipelineClosed so the dispatcher answers them.
package router
