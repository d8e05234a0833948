//go:build rp2040

package platform

import (
	"context"
	"io"
	"machine"
	"sync"
	"time"

	"eusama-go/canbus"
	"eusama-go/drivers/calstore"
	"eusama-go/drivers/mcp3004"
	"eusama-go/errcode"
	"eusama-go/services/stand/internal/actuator"
	"eusama-go/services/stand/internal/hw"
	"eusama-go/types"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/mcp2515"
)

// ---- GPIO ----

func outPin(n int, initial bool) machine.Pin {
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Set(initial)
	return p
}

func inPin(n int) machine.Pin {
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return p
}

// ---- Board ----

// Open configures the RP2040 peripherals described by cfg: converters on
// SPI0, EEPROM on I2C0, MCP2515 on SPI1 and the diagnostic UART.
func Open(cfg types.StandConfig) (*hw.Board, error) {
	p := cfg.Pins

	adcHz := cfg.ADC.Hz
	if adcHz == 0 {
		adcHz = 1_000_000
	}
	if err := machine.SPI0.Configure(machine.SPIConfig{Frequency: adcHz, Mode: 0}); err != nil {
		return nil, errcode.Wrap(errcode.InvalidConfig, "platform.spi0", err)
	}
	source := &adcPair{
		left:  mcp3004.New(machine.SPI0, outPin(cfg.ADC.CSLeft, true)),
		right: mcp3004.New(machine.SPI0, outPin(cfg.ADC.CSRight, true)),
	}

	if err := machine.I2C0.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		return nil, errcode.Wrap(errcode.InvalidConfig, "platform.i2c0", err)
	}
	store := calstore.NewEEPROM(machine.I2C0, calstore.Config{
		Address:  cfg.EEPROM.Addr,
		Offset:   cfg.EEPROM.Offset,
		PageSize: cfg.EEPROM.PageSize,
		Size:     cfg.EEPROM.Size,
	})

	can, err := openCAN(cfg.CAN)
	if err != nil {
		return nil, err
	}

	leds := &ledMatrix{en: outPin(p.LEDEnable, true)}
	for i := range leds.sel {
		leds.sel[i] = outPin(p.LEDSelect[i], false)
	}

	board := &hw.Board{
		Name:   "pico",
		Source: source,
		Store:  store,
		Outputs: actuator.Outputs{
			Motors:  [2]actuator.Output{outPin(p.MotorLeft, false), outPin(p.MotorRight, false)},
			Lamps:   [3]actuator.Output{outPin(p.LampLeft, false), outPin(p.LampEntry, false), outPin(p.LampRight, false)},
			Display: logDisplay{},
		},
		Top:     inPin(p.Top),
		LEDs:    leds,
		Gate:    &sync.Mutex{},
		CAN:     can,
		Console: openConsole(cfg.Console),
	}
	println("[platform] pico board ready")
	return board, nil
}

// ---- Console ----

func openConsole(c types.ConsoleConfig) io.Writer {
	var u *uartx.UART
	switch c.UART {
	case "uart0":
		u = uartx.UART0
	case "uart1":
		u = uartx.UART1
	default:
		return nil
	}
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: c.Baud,
		TX:       machine.Pin(c.TX),
		RX:       machine.Pin(c.RX),
	})
	var par uartx.UARTParity
	switch c.Parity {
	case types.ParityEven:
		par = uartx.ParityEven
	case types.ParityOdd:
		par = uartx.ParityOdd
	default:
		par = uartx.ParityNone
	}
	_ = u.SetFormat(8, 1, par)
	return u
}

// ---- CAN (MCP2515) ----

func bitrate(kbps int) uint8 {
	switch kbps {
	case 125:
		return mcp2515.CAN125kBps
	case 250:
		return mcp2515.CAN250kBps
	case 500:
		return mcp2515.CAN500kBps
	default:
		return mcp2515.CAN1000kBps
	}
}

func clock(mhz int) uint8 {
	if mhz == 16 {
		return mcp2515.Clock16MHz
	}
	return mcp2515.Clock8MHz
}

func openCAN(c types.CANConfig) (canbus.Bus, error) {
	if err := machine.SPI1.Configure(machine.SPIConfig{Frequency: 8_000_000, Mode: 0}); err != nil {
		return nil, errcode.Wrap(errcode.InvalidConfig, "platform.spi1", err)
	}
	dev := mcp2515.New(machine.SPI1, machine.Pin(c.CS))
	dev.Configure()
	if err := dev.Begin(bitrate(c.BitrateKbps), clock(c.ClockMHz)); err != nil {
		return nil, errcode.Wrap(errcode.InvalidConfig, "platform.mcp2515", err)
	}
	b := &mcpBus{
		dev:    dev,
		tx:     &mcpTx{spi: machine.SPI1, cs: machine.Pin(c.CS)},
		irq:    make(chan struct{}, 1),
		closed: make(chan struct{}),
	}

	intPin := inPin(c.INT)
	// INT is active low; the handler only wakes the receive worker.
	_ = intPin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		select {
		case b.irq <- struct{}{}:
		default:
		}
	})
	return b, nil
}

// mcpBus adapts the MCP2515 to canbus.Bus. The controller is polled after
// each INT edge and at least once per millisecond. Frames go out through
// mcpTx; the driver handles setup and reception.
type mcpBus struct {
	mu     sync.Mutex
	dev    *mcp2515.Device
	tx     *mcpTx
	irq    chan struct{}
	once   sync.Once
	closed chan struct{}
}

func (b *mcpBus) Send(ctx context.Context, f canbus.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	select {
	case <-b.closed:
		return canbus.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	b.mu.Lock()
	err := b.tx.Send(&f)
	b.mu.Unlock()
	return err
}

func (b *mcpBus) Receive(ctx context.Context) (canbus.Frame, error) {
	poll := time.NewTicker(time.Millisecond)
	defer poll.Stop()
	for {
		b.mu.Lock()
		ready := b.dev.Received()
		var msg *mcp2515.CANMsg
		var err error
		if ready {
			msg, err = b.dev.Rx()
		}
		b.mu.Unlock()
		if err != nil {
			return canbus.Frame{}, err
		}
		if msg != nil {
			return toFrame(msg), nil
		}
		select {
		case <-ctx.Done():
			return canbus.Frame{}, ctx.Err()
		case <-b.closed:
			return canbus.Frame{}, canbus.ErrClosed
		case <-b.irq:
		case <-poll.C:
		}
	}
}

func toFrame(m *mcp2515.CANMsg) canbus.Frame {
	return rxFrame(m.ID, m.Ext, m.Rtr, m.Dlc, m.Data)
}

func (b *mcpBus) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}
