package entry

import "time"

type RecordType uint8

const (
	RecordInsert RecordType = iota
	RecordModify
	RecordCancel
	RecordPhase
)

// Record is one logged command. Seq is the engine command sequence,
// Data the command payload as encoded by the order service.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
