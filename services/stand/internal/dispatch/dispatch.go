// Package dispatch routes inbound vendor frames to the calibration table
// and the actuators. Invalid frames are dropped and counted; nothing is
// ever answered on the bus.
package dispatch

import (
	"sync"
	"sync/atomic"

	"eusama-go/canbus"
	"eusama-go/errcode"
	"eusama-go/services/stand/internal/proto"
)

// Calibration receives SCALE_CMD updates.
type Calibration interface {
	SetPoint(ch, slot uint8, ad, w uint16) bool
}

// Actuators receives MOTOR/LAMP/DISPLAY commands.
type Actuators interface {
	ApplyMotorCommand(mask, seconds uint8)
	ApplyLampCommand(bits uint8)
	ApplyDisplayCommand(diff uint8, left, right uint16)
}

// Stats counts handled and dropped frames per reason.
type Stats struct {
	Applied        uint32
	NotExtended    uint32
	ForeignID      uint32
	UnknownSubID   uint32
	WrongDirection uint32
	ShortFrame     uint32
	OutOfRange     uint32
}

type Dispatcher struct {
	gate sync.Locker
	cal  Calibration
	act  Actuators

	applied        atomic.Uint32
	notExtended    atomic.Uint32
	foreignID      atomic.Uint32
	unknownSubID   atomic.Uint32
	wrongDirection atomic.Uint32
	shortFrame     atomic.Uint32
	outOfRange     atomic.Uint32
}

// New builds a dispatcher. gate is the lock shared with the calibration
// flush; nil means a private mutex.
func New(gate sync.Locker, cal Calibration, act Actuators) *Dispatcher {
	if gate == nil {
		gate = &sync.Mutex{}
	}
	return &Dispatcher{gate: gate, cal: cal, act: act}
}

// Handle validates f and applies it synchronously. The returned code is
// the drop reason (errcode.OK when applied) and is for diagnostics only.
func (d *Dispatcher) Handle(f canbus.Frame) errcode.Code {
	c := d.handle(&f)
	d.count(c)
	return c
}

func (d *Dispatcher) handle(f *canbus.Frame) errcode.Code {
	if !f.Extended {
		return errcode.NotExtended
	}
	sub, ok := proto.SubOf(f.ID)
	if !ok {
		return errcode.ForeignID
	}
	if _, known := proto.MinLen(sub); !known {
		return errcode.UnknownSubID
	}
	if !sub.Inbound() {
		return errcode.WrongDirection
	}

	d.gate.Lock()
	defer d.gate.Unlock()

	switch sub {
	case proto.ScaleCmd:
		c, err := proto.DecodeScale(f)
		if err != nil {
			return errcode.Of(err)
		}
		if !d.cal.SetPoint(c.Channel, c.Slot, c.ADCount, c.Weight) {
			return errcode.OutOfRange
		}
	case proto.MotorCmd:
		c, err := proto.DecodeMotor(f)
		if err != nil {
			return errcode.Of(err)
		}
		d.act.ApplyMotorCommand(c.Mask, c.Seconds)
	case proto.DisplayCmd:
		c, err := proto.DecodeDisplay(f)
		if err != nil {
			return errcode.Of(err)
		}
		d.act.ApplyDisplayCommand(c.Diff, c.Left, c.Right)
	case proto.LampCmd:
		c, err := proto.DecodeLamp(f)
		if err != nil {
			return errcode.Of(err)
		}
		d.act.ApplyLampCommand(c.Bits)
	}
	return errcode.OK
}

func (d *Dispatcher) count(c errcode.Code) {
	switch c {
	case errcode.OK:
		d.applied.Add(1)
	case errcode.NotExtended:
		d.notExtended.Add(1)
	case errcode.ForeignID:
		d.foreignID.Add(1)
	case errcode.UnknownSubID:
		d.unknownSubID.Add(1)
	case errcode.WrongDirection:
		d.wrongDirection.Add(1)
	case errcode.ShortFrame:
		d.shortFrame.Add(1)
	case errcode.OutOfRange:
		d.outOfRange.Add(1)
	}
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Applied:        d.applied.Load(),
		NotExtended:    d.notExtended.Load(),
		ForeignID:      d.foreignID.Load(),
		UnknownSubID:   d.unknownSubID.Load(),
		WrongDirection: d.wrongDirection.Load(),
		ShortFrame:     d.shortFrame.Load(),
		OutOfRange:     d.outOfRange.Load(),
	}
}

// Dropped is the total of all drop counters.
func (s Stats) Dropped() uint32 {
	return s.NotExtended + s.ForeignID + s.UnknownSubID + s.WrongDirection + s.ShortFrame + s.OutOfRange
}
