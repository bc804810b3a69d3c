// Package guardrail checks a patch's asserted metadata against a
// device's compile-time capability constants before any flash write
// happens (§4.3).
package guardrail

import (
	"errors"

	"tinymldelta.dev/core/tlv"
)

// ErrRejected is returned when any guardrail check fails.
var ErrRejected = errors.New("guardrail: patch metadata incompatible with device capabilities")

// FirmwareCaps are the device's compile-time capability constants. A
// zero value in any field (except EnforceIOHash, a plain bool) means
// "not asserted by the device", disabling that check regardless of what
// the patch asserts.
type FirmwareCaps struct {
	ArenaBytes    uint32
	TFLMABI       uint16
	OpsetHash     uint32
	EnforceIOHash bool
	IOHash        uint32
}

// Check runs all four guardrail comparisons against meta and returns
// ErrRejected on the first one that fails. A zero in a metadata field
// means "not asserted by the patch", disabling that check.
func Check(meta tlv.MetaState, caps FirmwareCaps) error {
	if meta.ReqArenaBytes > 0 && caps.ArenaBytes != 0 && meta.ReqArenaBytes > caps.ArenaBytes {
		return ErrRejected
	}
	if meta.TFLMABI > 0 && caps.TFLMABI != 0 && meta.TFLMABI > caps.TFLMABI {
		return ErrRejected
	}
	if caps.OpsetHash != 0 && meta.OpsetHash != 0 && meta.OpsetHash != caps.OpsetHash {
		return ErrRejected
	}
	if caps.EnforceIOHash && caps.IOHash != 0 && meta.IOHash != 0 && meta.IOHash != caps.IOHash {
		return ErrRejected
	}
	return nil
}
