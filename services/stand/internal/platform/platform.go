// Package platform builds the stand's hardware from configuration. Board
// specific factories live in build-tagged files; this file holds the
// pieces shared by all of them.
package platform

import (
	"errors"
	"time"

	"eusama-go/canbus"
	"eusama-go/drivers/mcp3004"
	"eusama-go/services/stand/internal/actuator"

	"tinygo.org/x/drivers"
)

// adcPair reads the left converter into channels 0..3 and the right one
// into 4..7.
type adcPair struct {
	left, right *mcp3004.Device
	buf         [mcp3004.Channels]uint16
}

func (p *adcPair) Read(dst *[8]uint16) error {
	if err := p.left.ReadAll(&p.buf); err != nil {
		return err
	}
	copy(dst[0:4], p.buf[:])
	if err := p.right.ReadAll(&p.buf); err != nil {
		return err
	}
	copy(dst[4:8], p.buf[:])
	return nil
}

// ledMatrix drives 16 LEDs through a 4-bit position select and an
// active-low enable; only one LED is lit at a time.
type ledMatrix struct {
	sel [4]actuator.Output
	en  actuator.Output
}

func (m *ledMatrix) Drive(pos uint8, on bool) {
	if !on {
		m.en.Set(true)
		return
	}
	for i, o := range m.sel {
		o.Set(pos&(1<<uint(i)) != 0)
	}
	m.en.Set(false)
}

// logDisplay prints the values the host asks the stand to show.
type logDisplay struct{}

func (logDisplay) Show(v actuator.DisplayValues) {
	println("[platform] display diff", v.Diff, "left", v.Left, "right", v.Right)
}

// ---- MCP2515 transmit ----

// MCP2515 SPI instructions and registers used by mcpTx.
const (
	mcpReadStatus = 0xA0
	mcpBitModify  = 0x05
	mcpCANINTF    = 0x2C

	mcpExide = 0x08 // TXBnSIDL: extended identifier enable
	mcpRTR   = 0x40 // TXBnDLC: remote transmission request

	mcpTxRetries = 50
)

var errTxBusy = errors.New("mcp2515: all tx buffers busy")

// mcpTxBuf describes one transmit buffer: its pending bit in READ STATUS,
// the LOAD TX BUFFER and RTS instructions, and its CANINTF flag.
type mcpTxBuf struct {
	pending, load, rts, intf uint8
}

var mcpTxBufs = [3]mcpTxBuf{
	{pending: 0x04, load: 0x40, rts: 0x81, intf: 0x04},
	{pending: 0x10, load: 0x42, rts: 0x82, intf: 0x08},
	{pending: 0x40, load: 0x44, rts: 0x84, intf: 0x10},
}

// mcpHeader encodes f into the TXBnSIDH, SIDL, EID8, EID0 and DLC bytes.
func mcpHeader(f *canbus.Frame) [5]byte {
	var h [5]byte
	if f.Extended {
		id := f.ID & 0x1FFFFFFF
		h[0] = byte(id >> 21)
		h[1] = byte((id>>18)&0x07)<<5 | mcpExide | byte((id>>16)&0x03)
		h[2] = byte(id >> 8)
		h[3] = byte(id)
	} else {
		id := f.ID & 0x7FF
		h[0] = byte(id >> 3)
		h[1] = byte(id&0x07) << 5
	}
	h[4] = f.Len & 0x0F
	if f.RTR {
		h[4] |= mcpRTR
	}
	return h
}

// rxFrame builds a frame from the fields the driver reports for a received
// message. data aliases the driver's buffer and is copied.
func rxFrame(id uint32, ext, rtr bool, dlc uint8, data []byte) canbus.Frame {
	f := canbus.Frame{ID: id, Extended: ext, RTR: rtr, Len: dlc & 0x0F}
	if f.Len > 8 {
		f.Len = 8
	}
	if !rtr {
		copy(f.Data[:f.Len], data)
	}
	return f
}

// mcpTx loads a free transmit buffer over SPI and requests transmission.
// The stock driver only writes standard identifiers. Callers serialize
// access with the receive path.
type mcpTx struct {
	spi drivers.SPI
	cs  actuator.Output
	w   [1 + 5 + 8]byte
	r   [1 + 5 + 8]byte
}

func (t *mcpTx) xfer(n int) error {
	t.cs.Set(false)
	err := t.spi.Tx(t.w[:n], t.r[:n])
	t.cs.Set(true)
	return err
}

func (t *mcpTx) status() (uint8, error) {
	t.w[0], t.w[1] = mcpReadStatus, 0
	if err := t.xfer(2); err != nil {
		return 0, err
	}
	return t.r[1], nil
}

// Send writes f to the first idle buffer, retrying briefly while all
// three are pending.
func (t *mcpTx) Send(f *canbus.Frame) error {
	for try := 0; try < mcpTxRetries; try++ {
		if try > 0 {
			time.Sleep(10 * time.Microsecond)
		}
		st, err := t.status()
		if err != nil {
			return err
		}
		for _, b := range mcpTxBufs {
			if st&b.pending != 0 {
				continue
			}
			t.w[0], t.w[1], t.w[2], t.w[3] = mcpBitModify, mcpCANINTF, b.intf, 0
			if err := t.xfer(4); err != nil {
				return err
			}
			h := mcpHeader(f)
			t.w[0] = b.load
			copy(t.w[1:], h[:])
			n := 6
			if !f.RTR {
				n += copy(t.w[6:], f.Payload())
			}
			if err := t.xfer(n); err != nil {
				return err
			}
			t.w[0] = b.rts
			return t.xfer(1)
		}
	}
	return errTxBusy
}
