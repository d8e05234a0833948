// Package actuator supervises the lift motors, the indicator lamps, the
// host-driven display values and the top-position sensor latch.
package actuator

import (
	"sync"

	"eusama-go/x/mathx"
)

// Output is a single digital output (motor contactor or lamp).
type Output interface {
	Set(on bool)
}

type DisplayValues struct {
	Diff  uint8
	Left  uint16
	Right uint16
}

// Display receives values sent by the host.
type Display interface {
	Show(v DisplayValues)
}

type nopOutput struct{}

func (nopOutput) Set(bool) {}

type nopDisplay struct{}

func (nopDisplay) Show(DisplayValues) {}

type Side uint8

const (
	Left Side = iota
	Right
)

// Lamp command bits.
const (
	LampLeft  uint8 = 1 << 0
	LampEntry uint8 = 1 << 1
	LampRight uint8 = 1 << 2
)

// TicksPerSecond converts runtime seconds into 10 ms ticks.
const TicksPerSecond = 100

type MotorState struct {
	Running        bool
	RemainingTicks uint16
}

// Outputs wires the supervisor to hardware. Nil members are ignored.
type Outputs struct {
	Motors  [2]Output
	Lamps   [3]Output // left, entry, right
	Display Display
}

type Supervisor struct {
	mu      sync.Mutex
	motors  [2]MotorState
	lamp    uint8
	display DisplayValues

	topLatched bool
	topLevel   bool

	motorOut [2]Output
	lampOut  [3]Output
	disp     Display
}

func New(o Outputs) *Supervisor {
	s := &Supervisor{disp: o.Display}
	for i, out := range o.Motors {
		s.motorOut[i] = orNop(out)
	}
	for i, out := range o.Lamps {
		s.lampOut[i] = orNop(out)
	}
	if s.disp == nil {
		s.disp = nopDisplay{}
	}
	return s
}

func orNop(o Output) Output {
	if o == nil {
		return nopOutput{}
	}
	return o
}

// ApplyMotorCommand starts (or restarts) each side whose bit is set. A zero
// mask stops both sides.
func (s *Supervisor) ApplyMotorCommand(mask, seconds uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mask == 0 {
		for i := range s.motors {
			s.stop(i)
		}
		return
	}
	for i := range s.motors {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		s.motors[i] = MotorState{Running: true, RemainingTicks: uint16(seconds) * TicksPerSecond}
		s.motorOut[i].Set(true)
	}
}

func (s *Supervisor) stop(i int) {
	s.motors[i] = MotorState{}
	s.motorOut[i].Set(false)
}

// Tick10ms counts running motors down. A motor reaching zero is stopped in
// the same call.
func (s *Supervisor) Tick10ms() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.motors {
		m := &s.motors[i]
		if !m.Running {
			continue
		}
		if m.RemainingTicks > 0 {
			m.RemainingTicks--
		}
		if m.RemainingTicks == 0 {
			s.stop(i)
		}
	}
}

func (s *Supervisor) Motor(side Side) MotorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motors[side&1]
}

// MotorSummary returns the running mask (bit0 left, bit1 right) and the
// longest remaining runtime in whole seconds.
func (s *Supervisor) MotorSummary() (mask uint8, seconds uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rem uint16
	for i, m := range s.motors {
		if m.Running {
			mask |= 1 << uint(i)
		}
		rem = mathx.Max(rem, m.RemainingTicks)
	}
	return mask, uint8(rem / TicksPerSecond)
}

// ApplyLampCommand drives the three lamps from bits 0..2 and keeps the byte.
func (s *Supervisor) ApplyLampCommand(bits uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lamp = bits
	for i, out := range s.lampOut {
		out.Set(bits&(1<<uint(i)) != 0)
	}
}

func (s *Supervisor) Lamp() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lamp
}

func (s *Supervisor) ApplyDisplayCommand(diff uint8, left, right uint16) {
	v := DisplayValues{Diff: diff, Left: left, Right: right}
	s.mu.Lock()
	s.display = v
	s.mu.Unlock()
	s.disp.Show(v)
}

func (s *Supervisor) Display() DisplayValues {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// SampleTopPosition records the sensor level and reports a rising edge,
// latching it until ClearTopLatch.
func (s *Supervisor) SampleTopPosition(level bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rising := level && !s.topLevel
	s.topLevel = level
	if rising {
		s.topLatched = true
	}
	return rising
}

func (s *Supervisor) TopLatched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topLatched
}

func (s *Supervisor) ClearTopLatch() {
	s.mu.Lock()
	s.topLatched = false
	s.mu.Unlock()
}
