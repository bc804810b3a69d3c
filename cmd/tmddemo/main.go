// Command tmddemo applies a .tmd patch to a file-backed flash image, the
// Go counterpart to examples/posix/demo_apply.c: it loads a patch from
// disk, hands it to the core engine against a flash.bin-style file and a
// one-byte active-slot file, and reports the resulting status.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	tmd "tinymldelta.dev/core"
	"tinymldelta.dev/core/guardrail"
	"tinymldelta.dev/core/platform/memport"
	"tinymldelta.dev/core/port"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tmddemo: %v\n", err)
		os.Exit(2)
	}
}

func run(stdout io.Writer, args []string) error {
	fs := flag.NewFlagSet("tmddemo", flag.ExitOnError)
	slotSize := fs.Uint("slot-size", 1<<20, "size in bytes of each of the two flash slots")
	arenaBytes := fs.Uint("arena-bytes", 0, "this device's TFLM arena size, 0 to disable the guardrail check")
	tflmABI := fs.Uint("tflm-abi", 0, "this device's TFLM ABI version, 0 to disable the guardrail check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: tmddemo [flags] flash.bin patch.tmd")
	}
	flashPath := fs.Arg(0)
	patchPath := fs.Arg(1)

	patch, err := os.ReadFile(patchPath)
	if err != nil {
		return fmt.Errorf("reading patch file: %w", err)
	}

	activeSlotPath := flashPath + ".active_slot"
	p := memport.NewFilePort(flashPath, activeSlotPath)

	size := uint32(*slotSize)
	layout := port.Layout{
		SlotA: port.Slot{Addr: 0, Size: size},
		SlotB: port.Slot{Addr: size, Size: size},
	}
	profile := tmd.BuildProfile{
		Algo: tmd.AlgoCRC32,
		FirmwareCaps: guardrail.FirmwareCaps{
			ArenaBytes: uint32(*arenaBytes),
			TFLMABI:    uint16(*tflmABI),
		},
	}

	res, err := tmd.ApplyPatchFromMemory(patch, p, layout, profile)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "patch applied successfully: status=%s active_slot=%d chunks_written=%d\n",
		res.Status, res.ActiveSlot, res.ChunksWritten)
	return nil
}
