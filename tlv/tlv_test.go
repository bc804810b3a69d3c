package tlv

import (
	"encoding/binary"
	"testing"
)

func tlvBytes(tag byte, val []byte) []byte {
	return append([]byte{tag, byte(len(val))}, val...)
}

func TestParseKnownTags(t *testing.T) {
	var arena, opset, io [4]byte
	binary.LittleEndian.PutUint32(arena[:], 128*1024)
	binary.LittleEndian.PutUint32(opset[:], 0xCAFEBABE)
	binary.LittleEndian.PutUint32(io[:], 0xDEADBEEF)
	var abi [2]byte
	binary.LittleEndian.PutUint16(abi[:], 3)

	var buf []byte
	buf = append(buf, tlvBytes(TagReqArenaBytes, arena[:])...)
	buf = append(buf, tlvBytes(TagTFLMABI, abi[:])...)
	buf = append(buf, tlvBytes(TagOpsetHash, opset[:])...)
	buf = append(buf, tlvBytes(TagIOHash, io[:])...)

	m, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	if m.ReqArenaBytes != 128*1024 || m.TFLMABI != 3 || m.OpsetHash != 0xCAFEBABE || m.IOHash != 0xDEADBEEF {
		t.Fatalf("got %+v", m)
	}
}

func TestParseUnknownAndVendorIgnored(t *testing.T) {
	var buf []byte
	buf = append(buf, tlvBytes(0x80, []byte{1, 2, 3})...)
	buf = append(buf, tlvBytes(0x05, []byte{9, 9})...)
	m, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	if m != (MetaState{}) {
		t.Fatalf("expected zero state, got %+v", m)
	}
}

func TestParseWrongLenSkipped(t *testing.T) {
	// REQ_ARENA_BYTES declared with len=2 instead of 4: field stays zero,
	// but the cursor still advances past the 2 bytes.
	buf := tlvBytes(TagReqArenaBytes, []byte{0xAA, 0xBB})
	m, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	if m.ReqArenaBytes != 0 {
		t.Fatalf("expected field left at zero, got %d", m.ReqArenaBytes)
	}
}

func TestParseTruncatedIsError(t *testing.T) {
	buf := []byte{TagReqArenaBytes, 10, 1, 2} // declares 10 bytes, only 2 present
	_, err := Parse(buf)
	if err != ErrTruncated {
		t.Fatalf("got %v want ErrTruncated", err)
	}
}

func TestParseStopsOnDanglingByte(t *testing.T) {
	buf := []byte{0x80} // single byte, not a full tag+len
	m, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	if m != (MetaState{}) {
		t.Fatalf("expected zero state, got %+v", m)
	}
}
