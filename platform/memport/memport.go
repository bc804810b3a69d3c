// Package memport is an in-memory reference port: flash is a byte
// slice, the active-slot indicator and journal are in-process fields.
// It plays the role the teacher's driver/mjolnir.Simulator plays for
// hardware it cannot physically exercise in a test run, and the role
// examples/posix/tinymldelta_ports_posix.c plays in the original C
// project (a flash.bin-backed reference implementation) — here kept
// purely in memory since Go tests don't need a real file.
package memport

import (
	"fmt"
	"hash/crc32"
	"log"

	"tinymldelta.dev/core/port"
)

// Port is an in-memory implementation of port.Flash, port.SlotCommit,
// port.CRC32, port.Journal, and port.Logger.
type Port struct {
	flash        []byte
	active       uint8
	journal      port.Record
	journalValid bool
	// FailErase/FailWrite/FailRead/FailJournalRead force the
	// corresponding operation to fail, for exercising ERR_FLASH paths.
	FailErase       bool
	FailWrite       bool
	FailRead        bool
	FailJournalRead bool
	Logs            []string
}

// New returns a Port with flashSize bytes of erased (0xFF) flash and
// slot 0 active.
func New(flashSize uint32) *Port {
	buf := make([]byte, flashSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &Port{flash: buf}
}

// Flash returns a copy of the live flash image, for assertions in tests.
func (p *Port) Flash() []byte {
	out := make([]byte, len(p.flash))
	copy(out, p.flash)
	return out
}

func (p *Port) bounds(addr, length uint32) error {
	if uint64(addr)+uint64(length) > uint64(len(p.flash)) {
		return fmt.Errorf("memport: access [%d,%d) out of flash bounds (size=%d)", addr, addr+length, len(p.flash))
	}
	return nil
}

func (p *Port) Erase(addr, length uint32) error {
	if p.FailErase {
		return fmt.Errorf("memport: simulated erase failure")
	}
	if err := p.bounds(addr, length); err != nil {
		return err
	}
	for i := uint32(0); i < length; i++ {
		p.flash[addr+i] = 0xFF
	}
	return nil
}

func (p *Port) Write(addr uint32, src []byte) error {
	if p.FailWrite {
		return fmt.Errorf("memport: simulated write failure")
	}
	if err := p.bounds(addr, uint32(len(src))); err != nil {
		return err
	}
	copy(p.flash[addr:], src)
	return nil
}

func (p *Port) Read(addr uint32, length uint32) ([]byte, error) {
	if p.FailRead {
		return nil, fmt.Errorf("memport: simulated read failure")
	}
	if err := p.bounds(addr, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, p.flash[addr:addr+length])
	return out, nil
}

func (p *Port) GetActive() (uint8, error) { return p.active, nil }

func (p *Port) SetActive(idx uint8) error {
	p.active = idx
	return nil
}

func (p *Port) CRC32(buf []byte) uint32 {
	return crc32.ChecksumIEEE(buf)
}

func (p *Port) ReadJournal() (port.Record, error) {
	if p.FailJournalRead {
		return port.Record{}, fmt.Errorf("memport: simulated journal read failure")
	}
	if !p.journalValid {
		return port.Record{}, nil
	}
	return p.journal, nil
}

func (p *Port) WriteJournal(r port.Record) error {
	p.journal = r
	p.journalValid = true
	return nil
}

func (p *Port) ClearJournal() error {
	p.journal = port.Record{}
	p.journalValid = false
	return nil
}

func (p *Port) Logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	p.Logs = append(p.Logs, line)
	log.Print(line)
}
