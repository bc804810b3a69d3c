package memport

import (
	"os"

	"github.com/fxamacker/cbor/v2"

	"tinymldelta.dev/core/port"
)

// journalWire is the on-disk shape of a persisted journal record. Unlike
// the patch wire format (§6.3, bit-exact by specification), the journal
// region's layout is a port implementation detail (§6.1) — this
// reference port picks CBOR rather than inventing another packed binary
// layout for a single small struct.
type journalWire struct {
	Magic        uint32 `cbor:"1,keyasint"`
	PatchID      uint32 `cbor:"2,keyasint"`
	NextChunkIdx uint32 `cbor:"3,keyasint"`
	TargetSlot   uint8  `cbor:"4,keyasint"`
}

// FileJournal persists a journal record as a CBOR document at Path. It
// implements port.Journal. A missing or corrupt file reads back as a
// zeroed record, matching the "short/absent read" contract in §6.1 so an
// uninitialized region can't be told apart from "no prior state".
type FileJournal struct {
	Path string
}

func (f FileJournal) ReadJournal() (port.Record, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return port.Record{}, nil
	}
	var w journalWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return port.Record{}, nil
	}
	return port.Record{
		Magic:        w.Magic,
		PatchID:      w.PatchID,
		NextChunkIdx: w.NextChunkIdx,
		TargetSlot:   w.TargetSlot,
	}, nil
}

func (f FileJournal) WriteJournal(r port.Record) error {
	w := journalWire{
		Magic:        r.Magic,
		PatchID:      r.PatchID,
		NextChunkIdx: r.NextChunkIdx,
		TargetSlot:   r.TargetSlot,
	}
	data, err := cbor.Marshal(w)
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o644)
}

func (f FileJournal) ClearJournal() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
