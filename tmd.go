// Package tmd is TinyMLDelta: applies a binary delta patch to a
// model/firmware image held in a dual-slot flash layout, the way an
// embedded device resumes an over-the-air update after sudden power
// loss. The package is a single sequential pipeline (§2): parse the
// header, parse the metadata TLVs, enforce guardrails, clone the active
// slot into the inactive one, apply each chunk, manage the journal, and
// finally flip the active-slot indicator.
//
// The package never touches flash, a digest primitive, or persistent
// storage directly — it drives those through the port package's
// capability interfaces, the way the original C core drove a
// function-pointer table (see port's doc comment for the dispatch
// rationale).
package tmd

import (
	"errors"
	"fmt"

	"tinymldelta.dev/core/chunkapply"
	"tinymldelta.dev/core/guardrail"
	"tinymldelta.dev/core/journal"
	"tinymldelta.dev/core/port"
	"tinymldelta.dev/core/slotclone"
	"tinymldelta.dev/core/tlv"
	"tinymldelta.dev/core/wire"
)

// Status is the coarse outcome the caller sees (§6.4).
type Status int

const (
	StatusOK Status = iota
	StatusErrParam
	StatusErrHeader
	StatusErrIntegrity
	StatusErrGuardrail
	StatusErrFlash
	StatusErrUnsupported
	StatusErrInternal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusErrParam:
		return "ERR_PARAM"
	case StatusErrHeader:
		return "ERR_HDR"
	case StatusErrIntegrity:
		return "ERR_INTEGRITY"
	case StatusErrGuardrail:
		return "ERR_GUARDRAIL"
	case StatusErrFlash:
		return "ERR_FLASH"
	case StatusErrUnsupported:
		return "ERR_UNSUPPORTED"
	default:
		return "ERR_INTERNAL"
	}
}

// Error wraps the status the core returns with the lower-level cause, so
// callers can either switch on Status or errors.As/errors.Is into the
// cause.
type Error struct {
	Status Status
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tmd: %s", e.Status)
	}
	return fmt.Sprintf("tmd: %s: %v", e.Status, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(st Status, err error) *Error { return &Error{Status: st, Err: err} }

// Algo identifies the integrity algorithm a build is configured for
// (§4.1, §9 "compile-time digest/patch algo coupling").
type Algo uint8

const (
	AlgoNone Algo = iota
	AlgoCRC32
	AlgoSHA256
	AlgoCMACCRC
)

// BuildProfile is the runtime replacement for the original's
// preprocessor feature matrix (§10.3): one value carrying the algorithm
// a build is wired for, the device's guardrail constants, and the
// scratch-buffer capacity.
type BuildProfile struct {
	Algo         Algo
	FirmwareCaps guardrail.FirmwareCaps
	// ScratchSize bounds RLE decode output and the slot-clone transfer
	// chunk size; default 1024 per §3.
	ScratchSize int
}

const defaultScratchSize = 1024

// Result carries the observable outcome of a successful apply, for
// callers or tests that want more than a bare status.
type Result struct {
	Status        Status
	ActiveSlot    uint8
	ChunksWritten int
}

// ApplyPatchFromMemory is the single entry point (§2): the whole
// sequential pipeline, invoked with the patch bytes already resident in
// memory (the transport that got them there is out of scope, §1).
func ApplyPatchFromMemory(patch []byte, p port.Port, layout port.Layout, profile BuildProfile) (Result, error) {
	scratch := profile.ScratchSize
	if scratch <= 0 {
		scratch = defaultScratchSize
	}

	if len(patch) < wire.HeaderSize {
		return Result{}, wrap(StatusErrParam, errors.New("patch shorter than header"))
	}
	hdr := wire.ParseHeader(patch)

	if hdr.Version != 1 {
		return Result{}, wrap(StatusErrHeader, fmt.Errorf("unsupported version %d", hdr.Version))
	}
	if !algoMatches(profile.Algo, hdr.Algo) {
		return Result{}, wrap(StatusErrUnsupported, fmt.Errorf("algo %d not supported by this build", hdr.Algo))
	}

	off := wire.HeaderSize
	if off+int(hdr.MetaLen) > len(patch) {
		return Result{}, wrap(StatusErrHeader, errors.New("meta_len exceeds patch length"))
	}

	meta, err := tlv.Parse(patch[off : off+int(hdr.MetaLen)])
	if err != nil {
		return Result{}, wrap(StatusErrHeader, err)
	}
	off += int(hdr.MetaLen)

	if err := guardrail.Check(meta, profile.FirmwareCaps); err != nil {
		return Result{}, wrap(StatusErrGuardrail, err)
	}

	if sv, ok := any(p).(port.SignatureVerifier); ok {
		authentic, err := sv.VerifyPatch(hdr.BaseChk, hdr.TargetChk)
		if err != nil {
			return Result{}, wrap(StatusErrFlash, err)
		}
		if !authentic {
			return Result{}, wrap(StatusErrGuardrail, errors.New("patch signature verification failed"))
		}
	}

	active, err := p.GetActive()
	if err != nil {
		return Result{}, wrap(StatusErrFlash, err)
	}
	inactive := uint8(1)
	if active == 1 {
		inactive = 0
	}
	slotSrc, slotDst := layout.SlotA, layout.SlotB
	if active == 1 {
		slotSrc, slotDst = layout.SlotB, layout.SlotA
	}

	if slotSrc.Size != slotDst.Size {
		return Result{}, wrap(StatusErrParam, errors.New("slot size mismatch"))
	}

	if err := slotclone.Clone(p, slotSrc, slotDst, scratch); err != nil {
		return Result{}, wrap(StatusErrFlash, err)
	}

	var jcap port.Journal
	if j, ok := any(p).(port.Journal); ok {
		jcap = j
	}
	patchID := journal.DerivePatchID(hdr.TargetChk)
	jm := journal.Open(jcap, patchID, inactive)

	var crcCap port.CRC32
	if c, ok := any(p).(port.CRC32); ok {
		crcCap = c
	}

	written := 0
	for idx := uint32(0); idx < uint32(hdr.ChunksN); idx++ {
		if off > len(patch) {
			return Result{}, wrap(StatusErrHeader, errors.New("chunk cursor past end of patch"))
		}
		res, err := chunkapply.Apply(patch[off:], p, crcCap, slotDst, scratch)
		if err != nil {
			return Result{}, wrap(classify(err), err)
		}
		off += res.Consumed
		written++

		if err := jm.Advance(idx); err != nil {
			return Result{}, wrap(StatusErrFlash, err)
		}
	}

	if err := jm.Clear(); err != nil {
		return Result{}, wrap(StatusErrFlash, err)
	}

	if err := p.SetActive(inactive); err != nil {
		return Result{}, wrap(StatusErrFlash, err)
	}

	return Result{Status: StatusOK, ActiveSlot: inactive, ChunksWritten: written}, nil
}

// algoMatches implements §4.1's build-vs-patch algo coupling: a build
// accepts only the single algo id it was configured for.
func algoMatches(build Algo, patchAlgo uint8) bool {
	switch build {
	case AlgoNone:
		return patchAlgo == 0
	case AlgoCRC32:
		return patchAlgo == 1
	case AlgoSHA256:
		return patchAlgo == 2
	case AlgoCMACCRC:
		return patchAlgo == 3
	default:
		return false
	}
}

// classify maps a chunkapply sentinel to the taxonomy in §7.
func classify(err error) Status {
	switch {
	case errors.Is(err, chunkapply.ErrMalformed):
		return StatusErrHeader
	case errors.Is(err, chunkapply.ErrIntegrity):
		return StatusErrIntegrity
	case errors.Is(err, chunkapply.ErrOutOfBounds):
		return StatusErrParam
	case errors.Is(err, chunkapply.ErrUnsupported):
		return StatusErrUnsupported
	default:
		return StatusErrFlash
	}
}
