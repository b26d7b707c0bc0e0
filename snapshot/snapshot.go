package snapshot

import (
	"time"

	"vidar/domain/engine"
)

// Snapshot is the persisted state of a whole engine at a command
// sequence. Replaying the entry WAL records above Seq on top of it yields
// the live state.
type Snapshot struct {
	Seq     uint64
	DealSeq uint64
	Created time.Time
	Books   []BookSnapshot
}

// BookSnapshot captures one book: market data, resting orders in priority
// order, and the session's burned identity keys.
type BookSnapshot struct {
	Instrument   engine.Instrument
	State        engine.BookState
	Bids         []engine.Order
	Asks         []engine.Order
	InsertedKeys []engine.OrderKey
}

// Capture assembles a book's snapshot. The caller serializes access.
func Capture(book *engine.OrderBook) BookSnapshot {
	bids, asks := book.Container().ByOrderView()
	return BookSnapshot{
		Instrument:   book.Instrument(),
		State:        book.State(),
		Bids:         bids,
		Asks:         asks,
		InsertedKeys: book.Container().InsertedKeys(),
	}
}
