package service

import (
	"context"
	"time"

	"vidar/snapshot"
)

// WriteSnapshot captures and persists the whole engine, then truncates
// both WALs below the captured sequences.
func (s *OrderService) WriteSnapshot(w *snapshot.Writer) error {
	s.mu.Lock()
	snap := &snapshot.Snapshot{
		Seq:     s.seq.Current(),
		DealSeq: s.engine.DealSeq(),
		Created: time.Now(),
	}
	for _, name := range s.engine.Instruments() {
		snap.Books = append(snap.Books, snapshot.Capture(s.engine.Book(name)))
	}
	s.mu.Unlock()

	if err := w.Write(snap); err != nil {
		return err
	}

	if s.entryWAL != nil {
		if err := s.entryWAL.TruncateBefore(snap.Seq); err != nil {
			s.log.Warnw("entry wal truncation failed", "err", err)
		}
	}
	if s.outbox != nil {
		if err := s.outbox.TruncateAckedUpTo(snap.DealSeq); err != nil {
			s.log.Warnw("outbox truncation failed", "err", err)
		}
	}
	return nil
}

// StartSnapshotJob snapshots periodically until the context is cancelled.
func (s *OrderService) StartSnapshotJob(ctx context.Context, w *snapshot.Writer, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := s.WriteSnapshot(w); err != nil {
					s.log.Errorw("snapshot failed", "err", err)
				}
			}
		}
	}()
}
