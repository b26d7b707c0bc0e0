package entry

import (
	"fmt"
	"os"
	"testing"
)

func TestAppendAndReplay(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir, SegmentSize: 1 << 20})
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}

	const n = 100
	for i := 1; i <= n; i++ {
		rec := NewRecord(RecordInsert, uint64(i), []byte(fmt.Sprintf("order-%d", i)))
		if err := w.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	count := 0
	lastSeq, err := Replay(dir, func(rec *Record) error {
		if rec.Type != RecordInsert {
			t.Fatalf("unexpected record type: %v", rec.Type)
		}
		count++
		if want := fmt.Sprintf("order-%d", count); string(rec.Data) != want {
			t.Fatalf("expected %q, got %q", want, rec.Data)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if count != n || lastSeq != n {
		t.Fatalf("expected %d records with last seq %d, got %d / %d", n, n, count, lastSeq)
	}
}

func TestRotationAndResume(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir, SegmentSize: 64})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 10; i++ {
		if err := w.Append(NewRecord(RecordCancel, uint64(i), []byte("cancel"))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	_ = w.Close()

	files, _ := os.ReadDir(dir)
	if len(files) < 2 {
		t.Fatalf("expected rotated segments, found %d", len(files))
	}

	// reopening must resume after the last written sequence
	w, err = Open(Config{Dir: dir, SegmentSize: 64})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(NewRecord(RecordCancel, 11, []byte("cancel"))); err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	_ = w.Close()

	lastSeq, err := Replay(dir, func(*Record) error { return nil })
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if lastSeq != 11 {
		t.Fatalf("expected last seq 11, got %d", lastSeq)
	}
}

func TestCRCIntegrity(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir, SegmentSize: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	_ = w.Append(NewRecord(RecordInsert, 1, []byte("valid-record")))
	_ = w.Sync()
	_ = w.Close()

	path := segmentPath(dir, 0)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	// corrupt the payload to break the checksum
	if _, err := f.WriteAt([]byte{0xFF, 0xFF, 0xFF, 0xFF}, headerSize); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	_, err = Replay(dir, func(*Record) error { return nil })
	if err == nil || err.Error() != "wal: crc mismatch" {
		t.Fatalf("expected crc mismatch, got %v", err)
	}
}

func TestTruncateBefore(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir, SegmentSize: 64})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 10; i++ {
		_ = w.Append(NewRecord(RecordInsert, uint64(i), []byte("payload")))
	}

	if err := w.TruncateBefore(5); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	_ = w.Close()

	lastSeq, err := Replay(dir, func(*Record) error { return nil })
	if err != nil {
		t.Fatalf("replay after truncate: %v", err)
	}
	if lastSeq != 10 {
		t.Fatalf("truncation must keep the tail, got last seq %d", lastSeq)
	}
}
