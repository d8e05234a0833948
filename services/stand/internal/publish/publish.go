// Package publish emits the stand's outbound frames on three independent
// lanes so a stalled lane never delays the others.
package publish

import (
	"sync/atomic"

	"eusama-go/canbus"
	"eusama-go/services/stand/internal/proto"
)

type Lane uint8

const (
	LaneData   Lane = iota // DMS weights
	LaneEvent              // top position
	LaneStatus             // motor and system status
	NumLanes
)

func (l Lane) String() string {
	switch l {
	case LaneData:
		return "data"
	case LaneEvent:
		return "event"
	case LaneStatus:
		return "status"
	}
	return "unknown"
}

// Lanes accepts a frame for transmission. Send blocks only for its own lane
// and gives up after an implementation-defined timeout.
type Lanes interface {
	Send(l Lane, f canbus.Frame) error
}

type Publisher struct {
	lanes  Lanes
	sent   atomic.Uint32
	failed atomic.Uint32
}

func New(l Lanes) *Publisher { return &Publisher{lanes: l} }

func (p *Publisher) send(l Lane, f canbus.Frame) error {
	if err := p.lanes.Send(l, f); err != nil {
		p.failed.Add(1)
		println("[publish] lane", l.String(), "send failed:", err.Error())
		return err
	}
	p.sent.Add(1)
	return nil
}

// Weights sends DMS_LEFT then DMS_RIGHT. Both are attempted; the first
// error is returned.
func (p *Publisher) Weights(w *[8]uint16) error {
	errL := p.send(LaneData, proto.DMSLeftFrame(w))
	errR := p.send(LaneData, proto.DMSRightFrame(w))
	if errL != nil {
		return errL
	}
	return errR
}

// Top reports a rising top-position edge.
func (p *Publisher) Top(t10ms uint32) error {
	return p.send(LaneEvent, proto.TopPositionFrame(t10ms))
}

// Status sends MOTOR_STATUS then SYSTEM_STATUS.
func (p *Publisher) Status(m proto.MotorStatusMsg, s proto.SystemStatusMsg) error {
	errM := p.send(LaneStatus, m.Frame())
	errS := p.send(LaneStatus, s.Frame())
	if errM != nil {
		return errM
	}
	return errS
}

// Counts returns frames accepted and rejected by the lanes.
func (p *Publisher) Counts() (sent, failed uint32) {
	return p.sent.Load(), p.failed.Load()
}
