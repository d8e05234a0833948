//go:build !rp2040

package platform

import (
	"errors"
	"sync"

	"eusama-go/canbus"
	"eusama-go/drivers/calstore"
	"eusama-go/drivers/mcp3004"
	"eusama-go/services/stand/internal/actuator"
	"eusama-go/services/stand/internal/hw"
	"eusama-go/types"
)

// ----------------------------- GPIO (host) -----------------------------------

// FakePin is a host-side digital pin usable as input or output.
type FakePin struct {
	mu     sync.RWMutex
	number int
	level  bool
}

func NewFakePin(n int) *FakePin { return &FakePin{number: n} }

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Number() int { return p.number }

// ----------------------------- ADC (host) ------------------------------------

var errNotSelected = errors.New("sim: converter not selected")

// SimADC answers MCP3004 conversions with programmable counts.
type SimADC struct {
	mu     sync.Mutex
	counts [mcp3004.Channels]uint16
	CS     *FakePin
}

func (a *SimADC) Set(ch int, count uint16) {
	if ch < 0 || ch >= mcp3004.Channels {
		return
	}
	if count > mcp3004.MaxCount {
		count = mcp3004.MaxCount
	}
	a.mu.Lock()
	a.counts[ch] = count
	a.mu.Unlock()
}

func (a *SimADC) Tx(w, r []byte) error {
	if a.CS.Get() {
		return errNotSelected
	}
	if len(w) < 3 || len(r) < 3 {
		return errors.New("sim: short transfer")
	}
	ch := (w[1] >> 4) & 0x03
	a.mu.Lock()
	v := a.counts[ch]
	a.mu.Unlock()
	r[0], r[1], r[2] = 0, byte(v>>8)&0x03, byte(v)
	return nil
}

func (a *SimADC) Transfer(b byte) (byte, error) { return 0, nil }

// ----------------------------- EEPROM (host) ---------------------------------

// SimEEPROM emulates a 4 KiB AT24C32 on an I2C bus.
type SimEEPROM struct {
	mu  sync.Mutex
	mem [4096]byte
	ptr uint16
	// Fail makes every transaction return an error.
	Fail bool
}

func NewSimEEPROM() *SimEEPROM {
	e := &SimEEPROM{}
	for i := range e.mem {
		e.mem[i] = 0xFF
	}
	return e
}

func (e *SimEEPROM) Tx(addr uint16, w, r []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Fail {
		return errors.New("sim: eeprom nack")
	}
	if len(w) >= 2 {
		e.ptr = (uint16(w[0])<<8 | uint16(w[1])) % uint16(len(e.mem))
		for _, b := range w[2:] {
			e.mem[e.ptr] = b
			e.ptr = (e.ptr + 1) % uint16(len(e.mem))
		}
	}
	for i := range r {
		r[i] = e.mem[e.ptr]
		e.ptr = (e.ptr + 1) % uint16(len(e.mem))
	}
	return nil
}

// ----------------------------- Board (host) ----------------------------------

// Sim exposes the simulated side of a host board.
type Sim struct {
	Host   canbus.Bus // the other end of the stand's CAN bus
	Left   *SimADC
	Right  *SimADC
	Top    *FakePin
	Motors [2]*FakePin
	Lamps  [3]*FakePin
	EEPROM *SimEEPROM

	loop *canbus.LoopbackBus
}

// SetLoad programs one raw count on channel 0..7.
func (s *Sim) SetLoad(ch int, count uint16) {
	if ch < 4 {
		s.Left.Set(ch, count)
	} else {
		s.Right.Set(ch-4, count)
	}
}

func (s *Sim) Close() error { return s.loop.Close() }

// Open builds a fully simulated board with nobody on the far end of the
// CAN bus; outbound frames are discarded.
func Open(cfg types.StandConfig) (*hw.Board, error) {
	b, sim, err := OpenSim(cfg)
	if err != nil {
		return nil, err
	}
	_ = sim.Host.Close()
	return b, nil
}

// OpenSim builds a simulated board and returns the handles that drive it.
func OpenSim(cfg types.StandConfig) (*hw.Board, *Sim, error) {
	p := cfg.Pins
	sim := &Sim{
		Left:   &SimADC{CS: NewFakePin(cfg.ADC.CSLeft)},
		Right:  &SimADC{CS: NewFakePin(cfg.ADC.CSRight)},
		Top:    NewFakePin(p.Top),
		Motors: [2]*FakePin{NewFakePin(p.MotorLeft), NewFakePin(p.MotorRight)},
		Lamps:  [3]*FakePin{NewFakePin(p.LampLeft), NewFakePin(p.LampEntry), NewFakePin(p.LampRight)},
		EEPROM: NewSimEEPROM(),
		loop:   canbus.NewLoopbackBus(),
	}
	sim.Host = sim.loop.Open()

	leds := &ledMatrix{en: NewFakePin(p.LEDEnable)}
	for i := range leds.sel {
		leds.sel[i] = NewFakePin(p.LEDSelect[i])
	}

	board := &hw.Board{
		Name: "host",
		Source: &adcPair{
			left:  mcp3004.New(sim.Left, sim.Left.CS),
			right: mcp3004.New(sim.Right, sim.Right.CS),
		},
		Store: calstore.NewEEPROM(sim.EEPROM, calstore.Config{
			Address:  cfg.EEPROM.Addr,
			Offset:   cfg.EEPROM.Offset,
			PageSize: cfg.EEPROM.PageSize,
			Size:     cfg.EEPROM.Size,
		}),
		Outputs: actuator.Outputs{
			Motors:  [2]actuator.Output{sim.Motors[0], sim.Motors[1]},
			Lamps:   [3]actuator.Output{sim.Lamps[0], sim.Lamps[1], sim.Lamps[2]},
			Display: logDisplay{},
		},
		Top:  sim.Top,
		LEDs: leds,
		Gate: &sync.Mutex{},
		CAN:  sim.loop.Open(),
	}
	println("[platform] host board ready (simulated)")
	return board, sim, nil
}
