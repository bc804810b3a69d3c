// Package spiflash implements TinyMLDelta's port capabilities against a
// real SPI NOR flash chip and a GPIO-latched active-slot indicator, the
// way driver/wshat and driver/lcd drive the Waveshare HAT's buttons and
// display over periph.io rather than raw /dev/mem. It is the
// hardware-backed counterpart to platform/memport's in-memory
// reference.
package spiflash

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Standard SPI NOR opcodes (Winbond/Macronix/ISSI W25Q-family; the
// devices this driver has been exercised against all agree on these).
const (
	opWriteEnable = 0x06
	opPageProgram = 0x02
	opSectorErase = 0x20
	opReadData    = 0x03
	opReadStatus  = 0x05
	statusBusy    = 0x01

	pageSize   = 256
	sectorSize = 4096
)

// Port drives a SPI NOR flash chip for port.Flash and a single GPIO pin
// for port.SlotCommit: the pin's level (low/high) is the persisted
// active-slot index, matched by reading it back at startup exactly the
// way GetActive must return whatever SetActive last wrote, even across a
// power cycle.
type Port struct {
	conn      spi.Conn
	closer    spi.PortCloser
	activePin gpio.PinIO
}

// Open connects to the first SPI bus found in the system registry (as
// driver/lcd.Open does) and takes ownership of pin as the active-slot
// latch.
func Open(pin gpio.PinIO) (*Port, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spiflash: %w", err)
	}
	p, err := spireg.Open("")
	if err != nil {
		return nil, fmt.Errorf("spiflash: %w", err)
	}
	c, err := p.Connect(20*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("spiflash: %w", err)
	}
	if err := pin.Out(pin.Read()); err != nil {
		p.Close()
		return nil, fmt.Errorf("spiflash: configuring active pin: %w", err)
	}
	return &Port{conn: c, closer: p, activePin: pin}, nil
}

// Close releases the underlying SPI bus.
func (f *Port) Close() error {
	return f.closer.Close()
}

func (f *Port) waitIdle() error {
	for {
		tx := []byte{opReadStatus, 0}
		rx := make([]byte, len(tx))
		if err := f.conn.Tx(tx, rx); err != nil {
			return fmt.Errorf("spiflash: read status: %w", err)
		}
		if rx[1]&statusBusy == 0 {
			return nil
		}
	}
}

func (f *Port) writeEnable() error {
	return f.conn.Tx([]byte{opWriteEnable}, nil)
}

// Erase sets [addr, addr+length) to 0xFF, one sector-erase command per
// sectorSize-aligned region length covers.
func (f *Port) Erase(addr, length uint32) error {
	if addr%sectorSize != 0 || length%sectorSize != 0 {
		return fmt.Errorf("spiflash: erase region [%d,%d) not sector-aligned", addr, addr+length)
	}
	for off := uint32(0); off < length; off += sectorSize {
		if err := f.writeEnable(); err != nil {
			return err
		}
		a := addr + off
		cmd := []byte{opSectorErase, byte(a >> 16), byte(a >> 8), byte(a)}
		if err := f.conn.Tx(cmd, nil); err != nil {
			return fmt.Errorf("spiflash: sector erase at %#x: %w", a, err)
		}
		if err := f.waitIdle(); err != nil {
			return err
		}
	}
	return nil
}

// Write programs src at addr, split into page-program commands since
// the chip cannot wrap a program within a page boundary.
func (f *Port) Write(addr uint32, src []byte) error {
	for len(src) > 0 {
		a := addr
		room := pageSize - int(a%pageSize)
		n := room
		if n > len(src) {
			n = len(src)
		}
		if err := f.writeEnable(); err != nil {
			return err
		}
		cmd := append([]byte{opPageProgram, byte(a >> 16), byte(a >> 8), byte(a)}, src[:n]...)
		if err := f.conn.Tx(cmd, nil); err != nil {
			return fmt.Errorf("spiflash: page program at %#x: %w", a, err)
		}
		if err := f.waitIdle(); err != nil {
			return err
		}
		addr += uint32(n)
		src = src[n:]
	}
	return nil
}

// Read reads length bytes starting at addr.
func (f *Port) Read(addr uint32, length uint32) ([]byte, error) {
	cmd := []byte{opReadData, byte(addr >> 16), byte(addr >> 8), byte(addr)}
	tx := append(cmd, make([]byte, length)...)
	rx := make([]byte, len(tx))
	if err := f.conn.Tx(tx, rx); err != nil {
		return nil, fmt.Errorf("spiflash: read at %#x: %w", addr, err)
	}
	return rx[len(cmd):], nil
}

// GetActive reads the latch pin back: low is slot 0, high is slot 1.
func (f *Port) GetActive() (uint8, error) {
	if f.activePin.Read() == gpio.High {
		return 1, nil
	}
	return 0, nil
}

// SetActive drives the latch pin to the level for idx.
func (f *Port) SetActive(idx uint8) error {
	lvl := gpio.Low
	if idx == 1 {
		lvl = gpio.High
	}
	if err := f.activePin.Out(lvl); err != nil {
		return fmt.Errorf("spiflash: setting active pin: %w", err)
	}
	return nil
}
