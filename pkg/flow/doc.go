// Package flow is the packet stream engine: the Packet that carries one
// in-flight request through a pipeline, and the operators that gate, branch,
// join and terminate packet streams.
//
// A pipeline is a stream of packets coming from a router registration,
// transformed by operators and finally subscribed:
//
//	stream.Pipe(r.Get("/hello/:name"),
//	    flow.Check(func(p *flow.Packet) (bool, error) {
//	        return p.Param("name") == "dude", nil
//	    }, flow.WithStatus(http.StatusTeapot), flow.WithMessage("teapot")),
//	    flow.Respond(flow.Text("Welcome")),
//	).Subscribe(flow.Sink(logger))
//
// Side effects (writing a response, invoking the continuation) happen inside
// operators. The stream itself only carries "this packet may still be acted
// upon": responders and Next emit nothing, gates emit a packet only when it
// passes.
//
// Stream errors are not scoped to a request. An error raised while handling
// one packet terminates the derived stream for every packet flowing through
// it; packets in flight at that moment are left to the dispatcher's error
// handling.
package flow
