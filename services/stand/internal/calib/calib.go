// Package calib holds the per-channel calibration points and converts
// compensated ADC counts into weight.
package calib

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"eusama-go/errcode"
	"eusama-go/x/mathx"
)

const (
	Channels = 8
	Slots    = 4
	// MaxADCount is the largest count a 10-bit converter returns.
	MaxADCount = 1023
	// BlobSize is the persisted table size: 32 points of two BE u16.
	BlobSize = Channels * Slots * 4
)

// Point maps an ADC threshold to the weight it represents.
type Point struct {
	ADCount uint16
	Weight  uint16
}

// Valid is false for the sentinel that terminates a channel's points.
func (p Point) Valid() bool { return p.ADCount != 0 && p.ADCount <= MaxADCount }

// Store is blocking non-volatile storage for the table blob.
type Store interface {
	Load(buf []byte) error
	Save(buf []byte) error
}

// Table is the 8x4 calibration table. Points are read every millisecond
// by the loop and written by the command dispatcher.
type Table struct {
	mu    sync.RWMutex
	pts   [Channels][Slots]Point
	dirty atomic.Bool

	gate sync.Locker
}

// New returns an empty table (every channel passes raw counts through).
// gate is held for the whole of a flush; pass the dispatcher's gate.
func New(gate sync.Locker) *Table {
	if gate == nil {
		gate = &sync.Mutex{}
	}
	return &Table{gate: gate}
}

// Point returns the stored point, ok=false when indices are out of range.
func (t *Table) Point(ch, slot uint8) (Point, bool) {
	if ch >= Channels || slot >= Slots {
		return Point{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pts[ch][slot], true
}

// Lookup selects the first point whose threshold exceeds q, or the last
// valid point. A sentinel ends the scan.
func (t *Table) Lookup(ch uint8, q uint16) (Point, bool) {
	if ch >= Channels {
		return Point{}, false
	}
	t.mu.RLock()
	row := t.pts[ch]
	t.mu.RUnlock()
	return lookup(&row, q)
}

func lookup(row *[Slots]Point, q uint16) (Point, bool) {
	var cand Point
	found := false
	for _, p := range row {
		if !p.Valid() {
			break
		}
		cand, found = p, true
		if p.ADCount > q {
			break
		}
	}
	return cand, found
}

// Weight converts a compensated count as raw*Weight/ADCount. Without a
// usable point the count is returned unchanged. Results that do not fit in
// 16 bits saturate at 0xFFFF instead of keeping the low half.
func (t *Table) Weight(ch uint8, raw uint16) uint16 {
	p, ok := t.Lookup(ch, raw)
	if !ok {
		return raw
	}
	return mathx.MulDivU16(raw, p.Weight, p.ADCount)
}

// Weights converts all channels in one pass.
func (t *Table) Weights(raw *[Channels]uint16, out *[Channels]uint16) {
	t.mu.RLock()
	pts := t.pts
	t.mu.RUnlock()
	for ch := range raw {
		if p, ok := lookup(&pts[ch], raw[ch]); ok {
			out[ch] = mathx.MulDivU16(raw[ch], p.Weight, p.ADCount)
		} else {
			out[ch] = raw[ch]
		}
	}
}

// SetPoint stores one point and marks the table dirty. Out-of-range
// indices are ignored.
func (t *Table) SetPoint(ch, slot uint8, ad, w uint16) bool {
	if ch >= Channels || slot >= Slots {
		return false
	}
	t.mu.Lock()
	t.pts[ch][slot] = Point{ADCount: ad, Weight: w}
	t.mu.Unlock()
	t.dirty.Store(true)
	return true
}

func (t *Table) Dirty() bool { return t.dirty.Load() }

// Encode writes the table as 128 bytes, channel-major, each point as
// BE adCount then BE weight.
func (t *Table) Encode(buf []byte) error {
	if len(buf) < BlobSize {
		return errcode.BadBlob
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := 0
	for ch := range t.pts {
		for _, p := range t.pts[ch] {
			binary.BigEndian.PutUint16(buf[i:], p.ADCount)
			binary.BigEndian.PutUint16(buf[i+2:], p.Weight)
			i += 4
		}
	}
	return nil
}

// Decode replaces the table from a blob produced by Encode. The dirty
// flag is left alone.
func (t *Table) Decode(buf []byte) error {
	if len(buf) < BlobSize {
		return errcode.BadBlob
	}
	var pts [Channels][Slots]Point
	i := 0
	for ch := range pts {
		for s := range pts[ch] {
			pts[ch][s] = Point{
				ADCount: binary.BigEndian.Uint16(buf[i:]),
				Weight:  binary.BigEndian.Uint16(buf[i+2:]),
			}
			i += 4
		}
	}
	t.mu.Lock()
	t.pts = pts
	t.mu.Unlock()
	return nil
}

// Load reads the table from the store. On failure the table is left empty.
func (t *Table) Load(s Store) error {
	var buf [BlobSize]byte
	if err := s.Load(buf[:]); err != nil {
		return errcode.Wrap(errcode.StoreFailed, "calib.load", err)
	}
	return t.Decode(buf[:])
}

// FlushIfDirty persists the table when it changed. The gate is held while
// serializing and writing so no command lands mid-write. On a write error
// the table stays dirty.
func (t *Table) FlushIfDirty(s Store) (bool, error) {
	if !t.dirty.Load() {
		return false, nil
	}
	t.gate.Lock()
	defer t.gate.Unlock()

	var buf [BlobSize]byte
	if err := t.Encode(buf[:]); err != nil {
		return false, err
	}
	if err := s.Save(buf[:]); err != nil {
		return false, errcode.Wrap(errcode.StoreFailed, "calib.save", err)
	}
	t.dirty.Store(false)
	return true, nil
}
