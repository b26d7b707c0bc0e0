// Package service orchestrates the core components of the matching
// engine — books, entry WAL, deal outbox, snapshots and metrics.
//
// It provides a clean API for submitting, replacing, cancelling, and
// querying orders, decoupled from network transports.
package service
