// Package proto encodes and decodes the vendor CAN dialect: a 29-bit
// identifier made of the 24-bit "EUS" prefix and a 5-bit sub-id, plus one
// fixed payload shape per sub-id. Multi-byte fields are big-endian.
package proto

import (
	"encoding/binary"

	"eusama-go/canbus"
	"eusama-go/errcode"
)

// VendorPrefix is "EUS" in ASCII.
const VendorPrefix uint32 = 0x455553

const (
	prefixShift = 5
	subMask     = 0x1F
	// AcceptMask selects the prefix bits of a 29-bit identifier.
	AcceptMask uint32 = 0x1FFFFFE0
)

type SubID uint8

const (
	DMSRight     SubID = 0x00
	DMSLeft      SubID = 0x01
	SystemStatus SubID = 0x05
	MotorStatus  SubID = 0x06
	TopPosition  SubID = 0x07
	ScaleCmd     SubID = 0x10
	MotorCmd     SubID = 0x11
	DisplayCmd   SubID = 0x12
	LampCmd      SubID = 0x13
)

func (s SubID) String() string {
	switch s {
	case DMSRight:
		return "dms_right"
	case DMSLeft:
		return "dms_left"
	case SystemStatus:
		return "system_status"
	case MotorStatus:
		return "motor_status"
	case TopPosition:
		return "top_position"
	case ScaleCmd:
		return "scale_cmd"
	case MotorCmd:
		return "motor_cmd"
	case DisplayCmd:
		return "display_cmd"
	case LampCmd:
		return "lamp_cmd"
	}
	return "unknown"
}

// Inbound reports whether the sub-id is a host-to-stand command.
func (s SubID) Inbound() bool { return s >= ScaleCmd && s <= LampCmd }

// MinLen is the minimum payload length for a known sub-id, ok=false otherwise.
func MinLen(s SubID) (n uint8, ok bool) {
	switch s {
	case DMSRight, DMSLeft, SystemStatus:
		return 8, true
	case MotorStatus, TopPosition, MotorCmd:
		return 2, true
	case ScaleCmd:
		return 6, true
	case DisplayCmd:
		return 5, true
	case LampCmd:
		return 1, true
	}
	return 0, false
}

// ID builds the extended identifier for a sub-id.
func ID(s SubID) uint32 {
	return VendorPrefix<<prefixShift | uint32(s)&subMask
}

// SubOf verifies the vendor prefix of id and returns its sub-id.
func SubOf(id uint32) (SubID, bool) {
	if id&AcceptMask != ID(0) {
		return 0, false
	}
	return SubID(id & subMask), true
}

// Filter accepts extended data frames carrying the vendor prefix.
func Filter() canbus.FrameFilter {
	return canbus.And(canbus.ExtendedOnly(),
		canbus.And(canbus.DataOnly(), canbus.ByMask(ID(0), AcceptMask)))
}

// Periodic matches the two weight frames sent on every fast tick.
func Periodic() canbus.FrameFilter {
	return canbus.Or(canbus.ByID(ID(DMSLeft)), canbus.ByID(ID(DMSRight)))
}

// TraceFilter selects the vendor frames worth logging. The weight stream
// is left out unless withDMS is set.
func TraceFilter(withDMS bool) canbus.FrameFilter {
	if withDMS {
		return Filter()
	}
	return canbus.And(Filter(), canbus.Not(Periodic()))
}

// DLC is the declared payload length of f (low nibble of the length field).
func DLC(f *canbus.Frame) uint8 { return f.Len & 0x0F }

// -----------------------------------------------------------------------------
// Outbound
// -----------------------------------------------------------------------------

// Weights encodes four weights as a DMS frame.
func Weights(s SubID, w [4]uint16) canbus.Frame {
	var b [8]byte
	for i, v := range w {
		binary.BigEndian.PutUint16(b[2*i:], v)
	}
	return canbus.ExtFrame(ID(s), b[:])
}

// DMSLeftFrame carries weights 0..3.
func DMSLeftFrame(w *[8]uint16) canbus.Frame {
	return Weights(DMSLeft, [4]uint16{w[0], w[1], w[2], w[3]})
}

// DMSRightFrame carries weights 4..7.
func DMSRightFrame(w *[8]uint16) canbus.Frame {
	return Weights(DMSRight, [4]uint16{w[4], w[5], w[6], w[7]})
}

// System status flag bits.
const (
	FlagLeftMotor  uint8 = 1 << 0
	FlagRightMotor uint8 = 1 << 1
	FlagTop        uint8 = 1 << 2
	FlagLeftFail   uint8 = 1 << 3
	FlagRightFail  uint8 = 1 << 4
)

type SystemStatusMsg struct {
	Flags    uint8
	Lamp     uint8
	SumLeft  uint16
	SumRight uint16
}

func (m SystemStatusMsg) Frame() canbus.Frame {
	var b [8]byte
	b[0] = m.Flags
	b[1] = m.Lamp
	binary.BigEndian.PutUint16(b[2:], m.SumLeft)
	binary.BigEndian.PutUint16(b[4:], m.SumRight)
	return canbus.ExtFrame(ID(SystemStatus), b[:])
}

type MotorStatusMsg struct {
	Running uint8 // bit0 left, bit1 right
	Seconds uint8
}

func (m MotorStatusMsg) Frame() canbus.Frame {
	return canbus.ExtFrame(ID(MotorStatus), []byte{m.Running, m.Seconds})
}

// TopPositionFrame reports a rising top-position edge.
func TopPositionFrame(t10ms uint32) canbus.Frame {
	return canbus.ExtFrame(ID(TopPosition), []byte{0x01, byte(t10ms)})
}

// -----------------------------------------------------------------------------
// Inbound
// -----------------------------------------------------------------------------

type ScaleCommand struct {
	Channel uint8
	Slot    uint8
	ADCount uint16
	Weight  uint16
}

type MotorCommand struct {
	Mask    uint8
	Seconds uint8
}

type DisplayCommand struct {
	Diff  uint8
	Left  uint16
	Right uint16
}

type LampCommand struct {
	Bits uint8
}

func checkLen(f *canbus.Frame, s SubID) error {
	n, _ := MinLen(s)
	if DLC(f) < n {
		return errcode.ShortFrame
	}
	return nil
}

func DecodeScale(f *canbus.Frame) (ScaleCommand, error) {
	if err := checkLen(f, ScaleCmd); err != nil {
		return ScaleCommand{}, err
	}
	d := f.Data[:]
	return ScaleCommand{
		Channel: d[0],
		Slot:    d[1],
		ADCount: binary.BigEndian.Uint16(d[2:]),
		Weight:  binary.BigEndian.Uint16(d[4:]),
	}, nil
}

func (c ScaleCommand) Frame() canbus.Frame {
	var b [6]byte
	b[0], b[1] = c.Channel, c.Slot
	binary.BigEndian.PutUint16(b[2:], c.ADCount)
	binary.BigEndian.PutUint16(b[4:], c.Weight)
	return canbus.ExtFrame(ID(ScaleCmd), b[:])
}

func DecodeMotor(f *canbus.Frame) (MotorCommand, error) {
	if err := checkLen(f, MotorCmd); err != nil {
		return MotorCommand{}, err
	}
	return MotorCommand{Mask: f.Data[0], Seconds: f.Data[1]}, nil
}

func (c MotorCommand) Frame() canbus.Frame {
	return canbus.ExtFrame(ID(MotorCmd), []byte{c.Mask, c.Seconds})
}

func DecodeDisplay(f *canbus.Frame) (DisplayCommand, error) {
	if err := checkLen(f, DisplayCmd); err != nil {
		return DisplayCommand{}, err
	}
	d := f.Data[:]
	return DisplayCommand{
		Diff:  d[0],
		Left:  binary.BigEndian.Uint16(d[1:]),
		Right: binary.BigEndian.Uint16(d[3:]),
	}, nil
}

func (c DisplayCommand) Frame() canbus.Frame {
	var b [5]byte
	b[0] = c.Diff
	binary.BigEndian.PutUint16(b[1:], c.Left)
	binary.BigEndian.PutUint16(b[3:], c.Right)
	return canbus.ExtFrame(ID(DisplayCmd), b[:])
}

func DecodeLamp(f *canbus.Frame) (LampCommand, error) {
	if err := checkLen(f, LampCmd); err != nil {
		return LampCommand{}, err
	}
	return LampCommand{Bits: f.Data[0]}, nil
}

func (c LampCommand) Frame() canbus.Frame {
	return canbus.ExtFrame(ID(LampCmd), []byte{c.Bits})
}
