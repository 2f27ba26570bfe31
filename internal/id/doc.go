// Package id provides identifier generation for rxmux.
//
// Two kinds of identifiers are produced:
//
//   - UUID and Short: random identifiers for general use.
//   - Sequence: a process-local generator of correlation identifiers. Each
//     Sequence owns a random prefix and an atomic counter, so identifiers
//     from different sequences never collide and no global state is shared.
//
// Correlation identifiers tag in-flight requests (see flow.Join). They are
// collision resistant but predictable and must not be used as secrets.
package id
