// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (errors.go, follow.go, event.go, session.go, etc.)
// with shared types and cross-cutting interfaces. No I/O - just contracts and pure helpers.
// Prevents circular imports by keeping interfaces on the consumer side.
package domain
