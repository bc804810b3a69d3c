package tmd

import (
	"bytes"
	"encoding/binary"
	"testing"

	"tinymldelta.dev/core/guardrail"
	"tinymldelta.dev/core/platform/memport"
	"tinymldelta.dev/core/port"
	"tinymldelta.dev/core/wire"
)

const slotSize = 256

func layout() port.Layout {
	return port.Layout{
		SlotA: port.Slot{Addr: 0, Size: slotSize},
		SlotB: port.Slot{Addr: slotSize, Size: slotSize},
	}
}

func profile() BuildProfile {
	return BuildProfile{Algo: AlgoCRC32, FirmwareCaps: guardrail.FirmwareCaps{ArenaBytes: 64 * 1024, TFLMABI: 1}}
}

type patchBuilder struct {
	algo    uint8
	chunks  [][]byte
	meta    []byte
	version uint8
}

func newPatch() *patchBuilder {
	return &patchBuilder{algo: 1, version: 1}
}

func (b *patchBuilder) addRawChunk(off uint32, payload []byte, crc *uint32) *patchBuilder {
	hdr := make([]byte, wire.ChunkHeaderSize)
	binary.LittleEndian.PutUint32(hdr[0:4], off)
	binary.LittleEndian.PutUint16(hdr[4:6], uint16(len(payload)))
	hdr[6] = wire.EncRaw
	if crc != nil {
		hdr[7] = 1
	}
	buf := append([]byte{}, hdr...)
	if crc != nil {
		var c [4]byte
		binary.LittleEndian.PutUint32(c[:], *crc)
		buf = append(buf, c[:]...)
	}
	buf = append(buf, payload...)
	b.chunks = append(b.chunks, buf)
	return b
}

func (b *patchBuilder) addRLEChunk(off uint32, count, val byte) *patchBuilder {
	hdr := make([]byte, wire.ChunkHeaderSize)
	binary.LittleEndian.PutUint32(hdr[0:4], off)
	binary.LittleEndian.PutUint16(hdr[4:6], 2)
	hdr[6] = wire.EncRLE
	buf := append(hdr, count, val)
	b.chunks = append(b.chunks, buf)
	return b
}

func (b *patchBuilder) withArenaTLV(bytesNeeded uint32) *patchBuilder {
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], bytesNeeded)
	b.meta = append(b.meta, 0x01, 4)
	b.meta = append(b.meta, v[:]...)
	return b
}

func (b *patchBuilder) build() []byte {
	hdr := make([]byte, wire.HeaderSize)
	hdr[0] = b.version
	hdr[1] = b.algo
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(b.chunks)))
	binary.LittleEndian.PutUint32(hdr[4:8], slotSize)
	binary.LittleEndian.PutUint32(hdr[8:12], slotSize)
	binary.LittleEndian.PutUint16(hdr[76:78], uint16(len(b.meta)))

	var out []byte
	out = append(out, hdr...)
	out = append(out, b.meta...)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

func TestS1MinimalRawPatch(t *testing.T) {
	p := memport.New(2 * slotSize)
	if err := p.Write(0, make([]byte, slotSize)); err != nil {
		t.Fatal(err)
	}
	patch := newPatch().addRawChunk(0, []byte{0xDE, 0xAD, 0xBE, 0xEF}, nil).build()
	res, err := ApplyPatchFromMemory(patch, p, layout(), profile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusOK || res.ActiveSlot != 1 {
		t.Fatalf("got %+v", res)
	}
	flash := p.Flash()
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if !bytes.Equal(flash[slotSize:slotSize+4], want) {
		t.Fatalf("slot B prefix = %x want %x", flash[slotSize:slotSize+4], want)
	}
	for _, b := range flash[slotSize+4 : 2*slotSize] {
		if b != 0 {
			t.Fatalf("expected cloned zero-fill, found %x", b)
		}
	}
	active, _ := p.GetActive()
	if active != 1 {
		t.Fatalf("active slot = %d want 1", active)
	}
}

func TestS2RLEChunk(t *testing.T) {
	p := memport.New(2 * slotSize)
	patch := newPatch().addRLEChunk(10, 5, 0xAA).build()
	res, err := ApplyPatchFromMemory(patch, p, layout(), profile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("got %+v", res)
	}
	flash := p.Flash()
	got := flash[slotSize+10 : slotSize+15]
	for _, b := range got {
		if b != 0xAA {
			t.Fatalf("got %x want all 0xAA", got)
		}
	}
}

func TestS3CRCMismatch(t *testing.T) {
	p := memport.New(2 * slotSize)
	bad := uint32(0xBADC0DE)
	patch := newPatch().addRawChunk(0, []byte{1, 2, 3, 4}, &bad).build()
	activeBefore, _ := p.GetActive()
	_, err := ApplyPatchFromMemory(patch, p, layout(), profile())
	var tErr *Error
	if err == nil || !assertErrorStatus(err, StatusErrIntegrity, &tErr) {
		t.Fatalf("got %v want ERR_INTEGRITY", err)
	}
	activeAfter, _ := p.GetActive()
	if activeBefore != activeAfter {
		t.Fatalf("active slot changed on failure")
	}
}

func TestS4GuardrailReject(t *testing.T) {
	p := memport.New(2 * slotSize)
	patch := newPatch().withArenaTLV(128 * 1024).addRawChunk(0, []byte{1}, nil).build()
	_, err := ApplyPatchFromMemory(patch, p, layout(), profile())
	var tErr *Error
	if err == nil || !assertErrorStatus(err, StatusErrGuardrail, &tErr) {
		t.Fatalf("got %v want ERR_GUARDRAIL", err)
	}
	flash := p.Flash()
	for _, b := range flash[slotSize : 2*slotSize] {
		if b != 0xFF {
			t.Fatalf("slot B must be untouched before guardrail check, found %x", b)
		}
	}
}

func TestS5OutOfSlotChunk(t *testing.T) {
	p := memport.New(2 * slotSize)
	patch := newPatch().addRawChunk(250, make([]byte, 16), nil).build()
	activeBefore, _ := p.GetActive()
	_, err := ApplyPatchFromMemory(patch, p, layout(), profile())
	var tErr *Error
	if err == nil || !assertErrorStatus(err, StatusErrParam, &tErr) {
		t.Fatalf("got %v want ERR_PARAM", err)
	}
	activeAfter, _ := p.GetActive()
	if activeBefore != activeAfter {
		t.Fatalf("active slot changed on failure")
	}
}

func TestS6VersionRejection(t *testing.T) {
	p := memport.New(2 * slotSize)
	b := newPatch()
	b.version = 2
	patch := b.addRawChunk(0, []byte{1}, nil).build()
	_, err := ApplyPatchFromMemory(patch, p, layout(), profile())
	var tErr *Error
	if err == nil || !assertErrorStatus(err, StatusErrHeader, &tErr) {
		t.Fatalf("got %v want ERR_HDR", err)
	}
	flash := p.Flash()
	for _, b := range flash {
		if b != 0xFF {
			t.Fatalf("no flash mutation expected for a rejected header")
		}
	}
}

func assertErrorStatus(err error, want Status, out **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*out = e
	return e.Status == want
}
