package itch

import "encoding/binary"

// ReadUint16BE reads a 2-byte big-endian unsigned integer. The caller is
// responsible for bounds-checking span.
func ReadUint16BE(span []byte) uint16 {
	return binary.BigEndian.Uint16(span)
}

// ReadUint32BE reads a 4-byte big-endian unsigned integer.
func ReadUint32BE(span []byte) uint32 {
	return binary.BigEndian.Uint32(span)
}

// ReadUint64BE reads an 8-byte big-endian unsigned integer.
func ReadUint64BE(span []byte) uint64 {
	return binary.BigEndian.Uint64(span)
}

// ReadTimestampBE reads the ITCH 6-byte nanoseconds-since-midnight
// timestamp, zero-extended to 64 bits.
func ReadTimestampBE(span []byte) uint64 {
	return uint64(span[0])<<40 | uint64(span[1])<<32 | uint64(span[2])<<24 |
		uint64(span[3])<<16 | uint64(span[4])<<8 | uint64(span[5])
}

// ReadStock copies an 8-byte, space-padded symbol out of span.
func ReadStock(span []byte) [8]byte {
	var stock [8]byte
	copy(stock[:], span[:8])
	return stock
}
