// Package journal manages the crash-safe progress marker that lets an
// interrupted apply be detected across a power loss (§4.6). The journal
// is an idempotent progress marker, not a write-ahead log of payload
// contents: the current design (ported unchanged from the original, see
// DESIGN.md) always re-clones and restarts from chunk 0 on the next
// apply, rather than resuming at NextChunkIdx.
package journal

import (
	"tinymldelta.dev/core/port"

	"golang.org/x/crypto/blake2b"
)

// Manager drives one apply's journal bookkeeping against a port.Journal
// capability.
type Manager struct {
	j    port.Journal
	rec  port.Record
	live bool
}

// Open reads the persisted record (if j is nil, journaling is disabled
// and every method below becomes a no-op). A record is treated as
// "present" only if the read succeeded and its magic matches; a failed
// read is treated exactly like "absent" — it is never propagated as an
// error (§11, supplemented from original_source).
//
// patchID and targetSlot seed a freshly initialized record; an existing
// valid record whose TargetSlot disagrees with targetSlot is also
// discarded and reinitialized (§3 invariant: the journal, if present and
// valid, must refer to the same target_slot the core is about to write
// to).
func Open(j port.Journal, patchID uint32, targetSlot uint8) *Manager {
	m := &Manager{j: j, live: j != nil}
	if !m.live {
		return m
	}
	rec, err := j.ReadJournal()
	if err != nil || !rec.Valid() || rec.TargetSlot != targetSlot {
		rec = port.Record{
			Magic:        port.JournalMagic,
			PatchID:      patchID,
			NextChunkIdx: 0,
			TargetSlot:   targetSlot,
		}
	}
	m.rec = rec
	return m
}

// Advance persists NextChunkIdx = idx+1 after chunk idx has been written
// successfully.
func (m *Manager) Advance(idx uint32) error {
	if !m.live {
		return nil
	}
	m.rec.NextChunkIdx = idx + 1
	return m.j.WriteJournal(m.rec)
}

// Clear zeroes the persisted record once every chunk has been applied.
func (m *Manager) Clear() error {
	if !m.live {
		return nil
	}
	return m.j.ClearJournal()
}

// DerivePatchID computes a compact fingerprint of a patch's target
// digest, for use as the journal's patch_id (§9, "a useful implementation
// would derive it from the header's target_chk to detect mid-apply patch
// substitution"). It runs independent of the build's chosen integrity
// algorithm — blake2b is a fixed, always-available hash dedicated to this
// one non-integrity purpose, not a substitute for the CRC32/SHA-256/CMAC
// capability that verifies chunk payloads.
func DerivePatchID(targetChk [32]byte) uint32 {
	sum := blake2b.Sum256(targetChk[:])
	return uint32(sum[0]) | uint32(sum[1])<<8 | uint32(sum[2])<<16 | uint32(sum[3])<<24
}
