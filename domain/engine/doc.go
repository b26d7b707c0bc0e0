// Package engine implements the matching core: per-instrument order
// books with price-time priority, continuous crossing and uniform-price
// auction uncrossing, the trading-phase state machine with its deviation
// circuit breaker, and the engine host that owns the books.
//
// The package is dependency-free and single-writer per book; callers
// serialize all operations. Everything above it (WAL, outbox, gateway)
// lives in the outer packages.
package engine
