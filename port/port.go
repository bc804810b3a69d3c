// Package port declares the capability interfaces the core consumes.
// The original C implementation threaded a function-pointer table
// through build-time preprocessor guards; this package replaces it with
// a small required interface plus optional sub-interfaces the core
// type-asserts for at runtime (§9, "compile-time feature flags → runtime
// polymorphism").
package port

// Slot describes one flash region: a byte address and a size, both in
// the platform's native flash addressing.
type Slot struct {
	Addr uint32
	Size uint32
}

// Layout is the platform-supplied flash geometry (§6.2). Both slots must
// have identical Size.
type Layout struct {
	SlotA    Slot
	SlotB    Slot
	MetaAddr uint32
	MetaSize uint32
}

// Flash is the required flash I/O capability.
type Flash interface {
	// Erase sets [addr, addr+length) to the erased pattern.
	Erase(addr, length uint32) error
	// Write writes src at addr.
	Write(addr uint32, src []byte) error
	// Read reads length bytes starting at addr.
	Read(addr uint32, length uint32) ([]byte, error)
}

// SlotCommit is the required active-slot indicator capability. The
// active slot is read once at the top of an apply and flipped, via
// SetActive, only after every chunk has been written and the journal (if
// enabled) cleared.
type SlotCommit interface {
	GetActive() (uint8, error)
	SetActive(idx uint8) error
}

// CRC32 is the conditional digest capability selected by a build whose
// BuildProfile.Algo is AlgoCRC32.
type CRC32 interface {
	CRC32(buf []byte) uint32
}

// SHA256 is the conditional streaming digest capability for a build
// whose BuildProfile.Algo is AlgoSHA256. ApplyPatchFromMemory does not
// call it: such a build checks only the patch's algo id, plus chunk CRCs
// when the port also implements CRC32.
type SHA256 interface {
	NewSHA256() SHA256Hash
}

// SHA256Hash is a single streaming SHA-256 computation.
type SHA256Hash interface {
	Write(p []byte)
	Sum() [32]byte
}

// CMACVerifier is the conditional capability for a build whose
// BuildProfile.Algo is AlgoCMACCRC: verifying an AES-CMAC tag over a
// message under a 16-byte key. ApplyPatchFromMemory does not call it;
// no CMAC tag is read from the patch.
type CMACVerifier interface {
	CMACVerify(key [16]byte, msg []byte, tag [16]byte) bool
}

// SignatureVerifier is an optional capability backing patch-authenticity
// verification (the reserved COSE_SIG hook in the original build
// configuration). The port owns whatever key material and detached
// signature back the check — a provisioned public key, a signature
// delivered alongside the patch bytes by the platform's own transport —
// the core only drives the yes/no the same way it drives CRC32 or
// SHA-256. When present, it is consulted against the patch's two digest
// fields before the slot clone begins.
type SignatureVerifier interface {
	VerifyPatch(baseChk, targetChk [32]byte) (bool, error)
}

// Journal is the conditional journal persistence capability (§4.6, §6.1).
// A short or absent read must return a zeroed record and a nil error, so
// an uninitialized region is indistinguishable from "no prior state".
type Journal interface {
	ReadJournal() (Record, error)
	WriteJournal(Record) error
	ClearJournal() error
}

// Record is the persisted journal record (§3).
type Record struct {
	Magic        uint32
	PatchID      uint32
	NextChunkIdx uint32
	TargetSlot   uint8
}

// JournalMagic identifies a valid journal record ('TMDP').
const JournalMagic = 0x544D4450

// Valid reports whether r carries the expected magic.
func (r Record) Valid() bool {
	return r.Magic == JournalMagic
}

// Logger is the optional structured log sink.
type Logger interface {
	Logf(format string, args ...any)
}

// Port bundles the required capabilities; optional ones are reached via
// type assertion against the concrete value (e.g. `if c, ok :=
// p.(port.CRC32); ok { ... }`). The core dispatches this way on CRC32,
// SignatureVerifier and Journal; it makes no calls to SHA256,
// CMACVerifier or Logger.
type Port interface {
	Flash
	SlotCommit
}
