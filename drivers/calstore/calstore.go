// Package calstore keeps the calibration blob in an AT24Cxx I2C EEPROM,
// with an in-memory variant for hosted builds.
package calstore

import (
	"bytes"
	"errors"
	"sync"

	"eusama-go/errcode"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/at24cx"
)

// DefaultAddress is the AT24Cxx base address with A2..A0 tied low.
const DefaultAddress = 0x50

var ErrVerify = errors.New("calstore: read-back mismatch")

type Config struct {
	Address  uint16
	Offset   int64  // first byte of the blob inside the EEPROM
	PageSize uint16 // write page, 32 for AT24C32/64
	Size     uint32 // device size in bytes
}

// EEPROM stores the blob at a fixed offset and verifies every write.
type EEPROM struct {
	dev    at24cx.Device
	offset int64
	check  []byte
}

// NewEEPROM configures an AT24Cxx on bus.
func NewEEPROM(bus drivers.I2C, cfg Config) *EEPROM {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 32
	}
	if cfg.Size == 0 {
		cfg.Size = 4096
	}
	dev := at24cx.New(bus)
	dev.Address = cfg.Address
	dev.Configure(at24cx.Config{
		PageSize:        cfg.PageSize,
		StartRAMAddress: 0,
		EndRAMAddress:   uint16(cfg.Size - 1),
	})
	return &EEPROM{dev: dev, offset: cfg.Offset}
}

func (e *EEPROM) Load(buf []byte) error {
	_, err := e.dev.ReadAt(buf, e.offset)
	return err
}

// Save writes buf and reads it back.
func (e *EEPROM) Save(buf []byte) error {
	if _, err := e.dev.WriteAt(buf, e.offset); err != nil {
		return err
	}
	if cap(e.check) < len(buf) {
		e.check = make([]byte, len(buf))
	}
	chk := e.check[:len(buf)]
	if err := e.Load(chk); err != nil {
		return err
	}
	if !bytes.Equal(chk, buf) {
		return ErrVerify
	}
	return nil
}

// Mem is a volatile store. A nil blob reports a blank device.
type Mem struct {
	mu    sync.Mutex
	blob  []byte
	Saves int
}

func (m *Mem) Load(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blob == nil {
		return errcode.BadBlob
	}
	copy(buf, m.blob)
	return nil
}

func (m *Mem) Save(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = append(m.blob[:0], buf...)
	m.Saves++
	return nil
}
