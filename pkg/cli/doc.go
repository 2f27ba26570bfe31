// Package cli provides the rxmux command tree.
//
// The binary serves a demo application whose routes are packet pipelines
// built from packages router, flow and guard. It is both a smoke test of the
// library and a reference for wiring it into a real server.
package cli
