// Package mcp3004 reads the MCP3004 4-channel 10-bit SAR converter over SPI.
//
// A conversion is one 3-byte full-duplex exchange:
//
//	out: 0x01, (single|ch)<<4, 0x00
//	in:  --,   ....._B9 B8,    B7..B0
//
// The chip-select line is driven by the caller-supplied Pin so several
// converters can share one bus.
package mcp3004

import (
	"errors"

	"tinygo.org/x/drivers"
)

const (
	Channels = 4
	MaxCount = 1023

	startBit    = 0x01
	singleEnded = 0x08
)

var ErrChannel = errors.New("mcp3004: channel out of range")

// Pin is an active-low chip select.
type Pin interface {
	Set(high bool)
}

type Device struct {
	bus drivers.SPI
	cs  Pin
	tx  [3]byte
	rx  [3]byte
}

// New returns a converter on bus selected by cs. cs is driven high (idle).
func New(bus drivers.SPI, cs Pin) *Device {
	d := &Device{bus: bus, cs: cs}
	if cs != nil {
		cs.Set(true)
	}
	return d
}

// Read converts one single-ended channel.
func (d *Device) Read(ch uint8) (uint16, error) {
	if ch >= Channels {
		return 0, ErrChannel
	}
	d.tx = [3]byte{startBit, (singleEnded | ch) << 4, 0x00}
	if d.cs != nil {
		d.cs.Set(false)
	}
	err := d.bus.Tx(d.tx[:], d.rx[:])
	if d.cs != nil {
		d.cs.Set(true)
	}
	if err != nil {
		return 0, err
	}
	return uint16(d.rx[1]&0x03)<<8 | uint16(d.rx[2]), nil
}

// ReadAll converts channels 0..3 into dst.
func (d *Device) ReadAll(dst *[Channels]uint16) error {
	for ch := range dst {
		v, err := d.Read(uint8(ch))
		if err != nil {
			return err
		}
		dst[ch] = v
	}
	return nil
}
