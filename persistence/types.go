// Package persistence checkpoints a book.Engine's live order state so a
// long-running walk over a large ITCH file can resume after a restart
// without re-decoding everything from byte zero.
//
// Architecture overview:
//
//	BookSnapshot  – full, self-contained engine state at one feed offset
//	Snapshotter   – zstd-compressed, atomically-written snapshot files
//
// This is a checkpoint facility, not a write-ahead log: the input feed is a
// static, already-ordered file, so recovery never needs to replay events,
// only the last captured order set and the byte offset to resume from.
package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
)

// OrderRecord is the durable form of one resting order inside a
// BookSnapshot.
type OrderRecord struct {
	RefNumber uint64
	Timestamp uint64
	Price     uint32
	Shares    uint32
}

// orderRecordWireSize is the fixed byte size of a serialised OrderRecord.
// Layout (all big-endian): 8 RefNumber, 8 Timestamp, 4 Price, 4 Shares.
const orderRecordWireSize = 24

// BookSnapshot is the full state needed to resume book reconstruction
// without re-decoding the feed from its start.
type BookSnapshot struct {
	// Timestamp is the Unix nanosecond at which the snapshot was captured.
	Timestamp int64
	// Symbol is the 8-byte, space-padded symbol the snapshotted engine
	// was configured for.
	Symbol [8]byte
	// Offset is the byte offset into the feed already processed; a
	// resumed walk starts here via itch.WalkFrom.
	Offset int64
	// Messages is the count of frames dispatched so far, carried through
	// for the throughput/summary report.
	Messages uint64
	// Bids and Asks are every live order on each side.
	Bids []OrderRecord
	Asks []OrderRecord
}

func marshalOrderRecord(buf []byte, o OrderRecord) {
	binary.BigEndian.PutUint64(buf[0:8], o.RefNumber)
	binary.BigEndian.PutUint64(buf[8:16], o.Timestamp)
	binary.BigEndian.PutUint32(buf[16:20], o.Price)
	binary.BigEndian.PutUint32(buf[20:24], o.Shares)
}

func unmarshalOrderRecord(buf []byte) OrderRecord {
	return OrderRecord{
		RefNumber: binary.BigEndian.Uint64(buf[0:8]),
		Timestamp: binary.BigEndian.Uint64(buf[8:16]),
		Price:     binary.BigEndian.Uint32(buf[16:20]),
		Shares:    binary.BigEndian.Uint32(buf[20:24]),
	}
}

// ─── Binary snapshot wire format ────────────────────────────────────────────
//
// All integers are big-endian.
//
//	 8 bytes – magic
//	 8 bytes – Timestamp (int64)
//	 8 bytes – Symbol
//	 8 bytes – Offset (int64)
//	 8 bytes – Messages (uint64)
//	 4 bytes – number of bid records (uint32)
//	   per record: orderRecordWireSize bytes
//	 4 bytes – number of ask records (uint32)
//	   per record: orderRecordWireSize bytes

var snapshotMagic = [8]byte{'I', 'T', 'C', 'H', 'B', 'K', 0, 1}

func writeSnapshot(w io.Writer, snap BookSnapshot) error {
	var header [8 + 8 + 8 + 8 + 8]byte
	copy(header[0:8], snapshotMagic[:])
	binary.BigEndian.PutUint64(header[8:16], uint64(snap.Timestamp))
	copy(header[16:24], snap.Symbol[:])
	binary.BigEndian.PutUint64(header[24:32], uint64(snap.Offset))
	binary.BigEndian.PutUint64(header[32:40], snap.Messages)
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	if err := writeOrderRecords(w, snap.Bids); err != nil {
		return fmt.Errorf("persistence: writing bids: %w", err)
	}
	if err := writeOrderRecords(w, snap.Asks); err != nil {
		return fmt.Errorf("persistence: writing asks: %w", err)
	}
	return nil
}

func writeOrderRecords(w io.Writer, records []OrderRecord) error {
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(records)))
	if _, err := w.Write(count[:]); err != nil {
		return err
	}
	buf := make([]byte, orderRecordWireSize)
	for _, rec := range records {
		marshalOrderRecord(buf, rec)
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func readSnapshot(r io.Reader) (*BookSnapshot, error) {
	var header [8 + 8 + 8 + 8 + 8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("persistence: reading snapshot header: %w", err)
	}
	var magic [8]byte
	copy(magic[:], header[0:8])
	if magic != snapshotMagic {
		return nil, fmt.Errorf("persistence: invalid snapshot magic")
	}

	snap := &BookSnapshot{
		Timestamp: int64(binary.BigEndian.Uint64(header[8:16])),
		Offset:    int64(binary.BigEndian.Uint64(header[24:32])),
		Messages:  binary.BigEndian.Uint64(header[32:40]),
	}
	copy(snap.Symbol[:], header[16:24])

	bids, err := readOrderRecords(r)
	if err != nil {
		return nil, fmt.Errorf("persistence: reading bids: %w", err)
	}
	snap.Bids = bids

	asks, err := readOrderRecords(r)
	if err != nil {
		return nil, fmt.Errorf("persistence: reading asks: %w", err)
	}
	snap.Asks = asks

	return snap, nil
}

func readOrderRecords(r io.Reader) ([]OrderRecord, error) {
	var count [4]byte
	if _, err := io.ReadFull(r, count[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(count[:])
	records := make([]OrderRecord, 0, n)
	buf := make([]byte, orderRecordWireSize)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		records = append(records, unmarshalOrderRecord(buf))
	}
	return records, nil
}
