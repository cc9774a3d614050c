// Package ir provides the formula intermediate representation consumed by
// the delegation compiler.
//
// This package contains node, value and type definitions only. All other
// internal packages import ir; ir imports nothing internal. This ensures IR
// remains the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Node and Value are sealed interfaces (marker methods); backends and
//     rewriters use exhaustive type switches
//   - Nodes are immutable once built; rewriters construct new nodes
//   - Every node carries a Span for diagnostics and a Type assigned by the
//     binder
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only
//     serialization used for fingerprints and golden files
package ir
