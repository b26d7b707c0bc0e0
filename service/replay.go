package service

import (
	"fmt"

	entrywal "vidar/infra/wal/entry"
	"vidar/snapshot"
)

/*
Startup recovery runs in two steps, before accepting traffic:

 1. Restore the latest snapshot (if any).
 2. ReplayFromWAL re-applies every command above the snapshot sequence.

The exit WAL is never replayed: deals re-emitted during replay are
suppressed, their outbox records are already durable.
*/

// Restore applies a snapshot to the freshly constructed books.
func (s *OrderService) Restore(snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bs := range snap.Books {
		book := s.engine.Book(bs.Instrument.Name)
		if book == nil {
			s.log.Warnw("snapshot references unlisted instrument, skipping",
				"instrument", bs.Instrument.Name)
			continue
		}
		book.Restore(bs.State, bs.Bids, bs.Asks, bs.InsertedKeys)
	}

	s.seq.Reset(snap.Seq)
	s.engine.ResetDealSeq(snap.DealSeq)

	s.log.Infow("snapshot restored", "seq", snap.Seq, "books", len(snap.Books))
	return nil
}

// ReplayFromWAL rebuilds state from the entry WAL. Records at or below
// the current sequence are already covered by the snapshot and skipped.
func (s *OrderService) ReplayFromWAL(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaying = true
	defer func() { s.replaying = false }()

	base := s.seq.Current()

	lastSeq, err := entrywal.Replay(dir, func(rec *entrywal.Record) error {
		if rec.Seq <= base {
			return nil
		}
		return s.apply(rec)
	})
	if err != nil {
		return fmt.Errorf("wal replay: %w", err)
	}

	if lastSeq > s.seq.Current() {
		s.seq.Reset(lastSeq)
	}

	s.log.Infow("wal replay completed", "last_seq", lastSeq)
	return nil
}

// apply re-executes one logged command. Rejections are not errors: a
// command rejected live is rejected identically on replay.
func (s *OrderService) apply(rec *entrywal.Record) error {
	switch rec.Type {
	case entrywal.RecordInsert:
		instrument, order, err := decodeInsert(rec.Data)
		if err != nil {
			return err
		}
		if book := s.engine.Book(instrument); book != nil {
			book.Insert(order)
		}

	case entrywal.RecordModify:
		instrument, replace, err := decodeModify(rec.Data)
		if err != nil {
			return err
		}
		if book := s.engine.Book(instrument); book != nil {
			book.Modify(replace)
		}

	case entrywal.RecordCancel:
		instrument, orderID, clientID, way, err := decodeCancel(rec.Data)
		if err != nil {
			return err
		}
		if book := s.engine.Book(instrument); book != nil {
			book.Cancel(orderID, clientID, way)
		}

	case entrywal.RecordPhase:
		instrument, phase, err := decodePhase(rec.Data)
		if err != nil {
			return err
		}
		if book := s.engine.Book(instrument); book != nil {
			book.SetTradingPhase(phase)
		}

	default:
		return fmt.Errorf("unknown wal record type %d", rec.Type)
	}
	return nil
}
