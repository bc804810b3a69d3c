// Package tlv parses the patch header's metadata block: a flat sequence
// of {tag, len, value} records carrying the guardrail facts a patch
// asserts about the device it targets.
package tlv

import (
	"encoding/binary"
	"errors"
)

// Recognized metadata tags (§3).
const (
	TagReqArenaBytes = 0x01
	TagTFLMABI       = 0x02
	TagOpsetHash     = 0x03
	TagIOHash        = 0x04
	TagVendorBegin   = 0x80
)

// ErrTruncated is returned when a TLV's declared length runs past the end
// of the metadata block.
var ErrTruncated = errors.New("tlv: declared length exceeds remaining metadata bytes")

// MetaState holds the guardrail facts extracted from a metadata block,
// all zero-valued until a matching, correctly-sized TLV sets them. A zero
// field means "not asserted by the patch" (§4.3).
type MetaState struct {
	ReqArenaBytes uint32
	TFLMABI       uint16
	OpsetHash     uint32
	IOHash        uint32
}

// Parse walks buf (exactly meta_len bytes, the slice the header parser
// carved out) and returns the accumulated MetaState.
//
// Stopping condition: fewer than 2 bytes (one full tag+len) remain. A tag
// whose len disagrees with its expected width is silently ignored — the
// field keeps its zero default — but the cursor still advances past it.
// Unknown and vendor (>= 0x80) tags are always ignored. A tag whose len
// exceeds the remaining bytes is a hard error.
func Parse(buf []byte) (MetaState, error) {
	var m MetaState
	off := 0
	for off+2 <= len(buf) {
		tag := buf[off]
		length := int(buf[off+1])
		valOff := off + 2
		avail := len(buf) - valOff
		if length > avail {
			return MetaState{}, ErrTruncated
		}
		val := buf[valOff : valOff+length]
		switch tag {
		case TagReqArenaBytes:
			if length == 4 {
				m.ReqArenaBytes = binary.LittleEndian.Uint32(val)
			}
		case TagTFLMABI:
			if length == 2 {
				m.TFLMABI = binary.LittleEndian.Uint16(val)
			}
		case TagOpsetHash:
			if length == 4 {
				m.OpsetHash = binary.LittleEndian.Uint32(val)
			}
		case TagIOHash:
			if length == 4 {
				m.IOHash = binary.LittleEndian.Uint32(val)
			}
		default:
			// Unknown and vendor (>= 0x80) tags: tolerated, ignored.
		}
		off = valOff + length
	}
	return m, nil
}
