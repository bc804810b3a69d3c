// Package wire reads the TinyMLDelta patch format's fixed-size records
// directly off byte slices with explicit little-endian accessors. No
// struct is ever overlaid onto the buffer, so there is nothing for target
// alignment or compiler padding to get wrong (see the wire entry in
// DESIGN.md).
package wire

import "encoding/binary"

// HeaderSize is the fixed, packed width of the patch header (§3).
const HeaderSize = 80

// ChunkHeaderSize is the fixed, packed width of a chunk record's header,
// not including the optional trailing CRC.
const ChunkHeaderSize = 8

// Header is the decoded form of the 80-byte patch header.
type Header struct {
	Version   uint8
	Algo      uint8
	ChunksN   uint16
	BaseLen   uint32
	TargetLen uint32
	BaseChk   [32]byte
	TargetChk [32]byte
	MetaLen   uint16
	Flags     uint16
}

// ParseHeader decodes the first HeaderSize bytes of buf. The caller is
// responsible for checking len(buf) >= HeaderSize first.
func ParseHeader(buf []byte) Header {
	_ = buf[:HeaderSize] // bounds check hint
	var h Header
	h.Version = buf[0]
	h.Algo = buf[1]
	h.ChunksN = binary.LittleEndian.Uint16(buf[2:4])
	h.BaseLen = binary.LittleEndian.Uint32(buf[4:8])
	h.TargetLen = binary.LittleEndian.Uint32(buf[8:12])
	copy(h.BaseChk[:], buf[12:44])
	copy(h.TargetChk[:], buf[44:76])
	h.MetaLen = binary.LittleEndian.Uint16(buf[76:78])
	h.Flags = binary.LittleEndian.Uint16(buf[78:80])
	return h
}

// ChunkHeader is the decoded form of a chunk record's fixed 8-byte
// prefix.
type ChunkHeader struct {
	Off    uint32
	Len    uint16
	Enc    uint8
	HasCRC uint8
}

// Encoding identifiers for ChunkHeader.Enc.
const (
	EncRaw = 0
	EncRLE = 1
)

// ParseChunkHeader decodes the first ChunkHeaderSize bytes of buf.
func ParseChunkHeader(buf []byte) ChunkHeader {
	_ = buf[:ChunkHeaderSize]
	return ChunkHeader{
		Off:    binary.LittleEndian.Uint32(buf[0:4]),
		Len:    binary.LittleEndian.Uint16(buf[4:6]),
		Enc:    buf[6],
		HasCRC: buf[7],
	}
}

// ParseU32 decodes a little-endian uint32 prefix, e.g. a chunk's optional
// CRC field.
func ParseU32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[:4])
}
