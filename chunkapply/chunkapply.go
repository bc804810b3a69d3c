// Package chunkapply implements the per-chunk state machine (§4.5):
// parse the chunk header, optionally verify its CRC, decode the payload,
// bounds-check it against the destination slot, and write it.
package chunkapply

import (
	"errors"
	"fmt"

	"tinymldelta.dev/core/port"
	"tinymldelta.dev/core/rle"
	"tinymldelta.dev/core/wire"
)

// Sentinel errors, one per taxonomy bucket in §7; the root package maps
// these to a Status. ErrMalformed covers every ERR_HDR condition: a
// truncated chunk header/CRC/payload, or an RLE decode that would
// overflow the scratch buffer (§4.5 step 6, "bubbles to ERR_HDR").
var (
	ErrMalformed   = errors.New("chunkapply: malformed chunk record")
	ErrIntegrity   = errors.New("chunkapply: chunk CRC mismatch")
	ErrOutOfBounds = errors.New("chunkapply: chunk target out of destination slot bounds")
	ErrUnsupported = errors.New("chunkapply: unsupported chunk encoding")
)

// Result is what applying one chunk consumed and produced.
type Result struct {
	// Consumed is the number of patch-buffer bytes the chunk occupied
	// (header + optional CRC + encoded payload), for advancing the
	// caller's cursor.
	Consumed int
}

// Apply parses one chunk record starting at buf[0], verifies its CRC (if
// present and the digest capability is available), decodes its payload,
// bounds-checks it against dst, and writes it through f.
//
// scratchSize bounds the RLE decoder's output, mirroring the fixed-size
// stack scratch buffer on the embedded side (§5).
func Apply(buf []byte, f port.Flash, crc port.CRC32, dst port.Slot, scratchSize int) (Result, error) {
	if len(buf) < wire.ChunkHeaderSize {
		return Result{}, ErrMalformed
	}
	ch := wire.ParseChunkHeader(buf)
	off := wire.ChunkHeaderSize

	var storedCRC uint32
	if ch.HasCRC != 0 {
		if len(buf) < off+4 {
			return Result{}, ErrMalformed
		}
		storedCRC = wire.ParseU32(buf[off:])
		off += 4
	}

	if len(buf) < off+int(ch.Len) {
		return Result{}, ErrMalformed
	}
	encoded := buf[off : off+int(ch.Len)]
	off += int(ch.Len)

	if ch.HasCRC != 0 && crc != nil {
		if got := crc.CRC32(encoded); got != storedCRC {
			return Result{}, ErrIntegrity
		}
	}

	var data []byte
	switch ch.Enc {
	case wire.EncRaw:
		data = encoded
	case wire.EncRLE:
		decoded, err := rle.Decode(encoded, scratchSize)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		data = decoded
	default:
		return Result{}, ErrUnsupported
	}

	if uint64(ch.Off)+uint64(len(data)) > uint64(dst.Size) {
		return Result{}, ErrOutOfBounds
	}

	if err := f.Write(dst.Addr+ch.Off, data); err != nil {
		return Result{}, fmt.Errorf("chunkapply: write: %w", err)
	}

	return Result{Consumed: off}, nil
}
