// Package slotclone copies the currently active flash slot into the
// inactive slot via a scratch-buffered read/write loop (§4.4). No
// journal is written during cloning — cloning must be complete before
// the chunk phase begins.
package slotclone

import (
	"fmt"

	"tinymldelta.dev/core/port"
)

// ErrSizeMismatch is returned when the source and destination slots do
// not have identical sizes.
var ErrSizeMismatch = fmt.Errorf("slotclone: source and destination slot sizes differ")

// Clone erases dst's entire range in one port call, then copies src into
// it scratchSize bytes at a time. Any port-level failure aborts
// immediately with the underlying error wrapped.
func Clone(f port.Flash, src, dst port.Slot, scratchSize int) error {
	if src.Size != dst.Size {
		return ErrSizeMismatch
	}
	if err := f.Erase(dst.Addr, dst.Size); err != nil {
		return fmt.Errorf("slotclone: erase: %w", err)
	}
	var remaining, srcOff, dstOff uint32 = src.Size, 0, 0
	for remaining > 0 {
		n := uint32(scratchSize)
		if remaining < n {
			n = remaining
		}
		buf, err := f.Read(src.Addr+srcOff, n)
		if err != nil {
			return fmt.Errorf("slotclone: read: %w", err)
		}
		if err := f.Write(dst.Addr+dstOff, buf); err != nil {
			return fmt.Errorf("slotclone: write: %w", err)
		}
		remaining -= n
		srcOff += n
		dstOff += n
	}
	return nil
}
