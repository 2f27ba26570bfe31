// Package requestlog captures a summary of every exchange a server answered
// so it can be inspected later, e.g. through an admin route. It is distinct
// from operational logging, which uses log/slog.
//
//	store := requestlog.NewMemoryStore(1000)
//	store.Log(&requestlog.Entry{Method: "GET", Path: "/users", Status: 200})
//	recent := store.List(&requestlog.Filter{Limit: 20})
//
// This is a leaf package with no internal dependencies.
package requestlog
