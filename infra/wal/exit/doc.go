// Package exit implements the durable deal outbox on top of pebble.
// Deals are stored before broadcast and garbage-collected only after
// downstream acknowledgement, so no execution is lost across restarts.
package exit
