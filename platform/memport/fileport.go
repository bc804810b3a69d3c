package memport

import (
	"fmt"
	"hash/crc32"
	"os"

	"tinymldelta.dev/core/port"
)

// FilePort is the file-backed counterpart to Port: flash lives in a
// flash.bin-style file and the active slot index in a one-byte
// companion file, exactly the role
// examples/posix/tinymldelta_ports_posix.c plays for the C demo.
// journal persistence is delegated to FileJournal rather than stored
// inline, since a Go caller can simply compose the two instead of
// special-casing a journal region the way the POSIX port reads/writes
// it at a fixed layout offset.
type FilePort struct {
	flashPath      string
	activeSlotPath string
}

// NewFilePort returns a FilePort backed by flashPath and activeSlotPath.
// Neither file needs to exist yet; Erase and Write create flashPath on
// first use (Read of a missing flashPath fails) and GetActive treats a
// missing or unreadable
// activeSlotPath as slot 0, mirroring posix_get_active_slot's fallback.
func NewFilePort(flashPath, activeSlotPath string) *FilePort {
	return &FilePort{flashPath: flashPath, activeSlotPath: activeSlotPath}
}

func (f *FilePort) open(flag int) (*os.File, error) {
	return os.OpenFile(f.flashPath, flag, 0o644)
}

func (f *FilePort) Erase(addr, length uint32) error {
	file, err := f.open(os.O_RDWR | os.O_CREATE)
	if err != nil {
		return fmt.Errorf("memport: opening %s: %w", f.flashPath, err)
	}
	defer file.Close()
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = 0xFF
	}
	if _, err := file.WriteAt(buf, int64(addr)); err != nil {
		return fmt.Errorf("memport: erasing [%d,%d): %w", addr, addr+length, err)
	}
	return nil
}

func (f *FilePort) Write(addr uint32, src []byte) error {
	file, err := f.open(os.O_RDWR | os.O_CREATE)
	if err != nil {
		return fmt.Errorf("memport: opening %s: %w", f.flashPath, err)
	}
	defer file.Close()
	if _, err := file.WriteAt(src, int64(addr)); err != nil {
		return fmt.Errorf("memport: writing at %d: %w", addr, err)
	}
	return nil
}

func (f *FilePort) Read(addr uint32, length uint32) ([]byte, error) {
	file, err := f.open(os.O_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("memport: opening %s: %w", f.flashPath, err)
	}
	defer file.Close()
	buf := make([]byte, length)
	if _, err := file.ReadAt(buf, int64(addr)); err != nil {
		return nil, fmt.Errorf("memport: reading at %d: %w", addr, err)
	}
	return buf, nil
}

// GetActive reads the one-byte active-slot file, returning slot 0 for
// any read failure exactly as posix_get_active_slot falls back to 0.
func (f *FilePort) GetActive() (uint8, error) {
	data, err := os.ReadFile(f.activeSlotPath)
	if err != nil || len(data) == 0 {
		return 0, nil
	}
	if data[0] == '1' {
		return 1, nil
	}
	return 0, nil
}

func (f *FilePort) SetActive(idx uint8) error {
	b := byte('0')
	if idx == 1 {
		b = '1'
	}
	if err := os.WriteFile(f.activeSlotPath, []byte{b}, 0o644); err != nil {
		return fmt.Errorf("memport: writing %s: %w", f.activeSlotPath, err)
	}
	return nil
}

// CRC32 matches the software CRC32 the POSIX demo wires in for
// TMD_FEAT_CRC32: hash/crc32's IEEE polynomial is the same CRC-32 the
// reference implementation hand-rolls.
func (f *FilePort) CRC32(buf []byte) uint32 {
	return crc32.ChecksumIEEE(buf)
}
