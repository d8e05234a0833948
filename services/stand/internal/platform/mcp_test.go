package platform

import (
	"bytes"
	"testing"

	"eusama-go/canbus"
)

func TestMCPHeader(t *testing.T) {
	cases := []struct {
		name string
		f    canbus.Frame
		want [5]byte
	}{
		{"dms left", canbus.ExtFrame(0x08AAAA61, make([]byte, 8)), [5]byte{0x45, 0x4A, 0xAA, 0x61, 0x08}},
		{"dms right", canbus.ExtFrame(0x08AAAA60, make([]byte, 8)), [5]byte{0x45, 0x4A, 0xAA, 0x60, 0x08}},
		{"all ones", canbus.ExtFrame(0x1FFFFFFF, nil), [5]byte{0xFF, 0xEB, 0xFF, 0xFF, 0x00}},
		{"standard", canbus.Frame{ID: 0x123, Len: 2}, [5]byte{0x24, 0x60, 0, 0, 0x02}},
		{"remote", canbus.Frame{ID: 0x7FF, RTR: true, Len: 3}, [5]byte{0xFF, 0xE0, 0, 0, 0x43}},
	}
	for _, c := range cases {
		if got := mcpHeader(&c.f); got != c.want {
			t.Errorf("%s: header % X, want % X", c.name, got, c.want)
		}
	}
}

// The receive side decodes headers the way the controller reports them;
// every extended id must survive the round trip.
func TestMCPHeaderRoundTrip(t *testing.T) {
	for _, id := range []uint32{0, 1, 0x7FF, 0x800, 0x3FFFF, 0x08AAAA60, 0x08AAAA73, 0x1FFFFFFF} {
		f := canbus.ExtFrame(id, nil)
		h := mcpHeader(&f)
		if h[1]&mcpExide == 0 {
			t.Fatalf("%#x: EXIDE not set", id)
		}
		got := uint32(h[0])<<3 | uint32(h[1])>>5
		got = got<<2 | uint32(h[1]&0x03)
		got = got<<8 | uint32(h[2])
		got = got<<8 | uint32(h[3])
		if got != id {
			t.Fatalf("%#x decoded as %#x", id, got)
		}
	}
}

func TestRxFrame(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	f := rxFrame(0x08AAAA71, true, false, 2, data)
	if !f.Extended || f.RTR || f.ID != 0x08AAAA71 || f.Len != 2 || f.Data[0] != 1 || f.Data[2] != 0 {
		t.Fatalf("extended data frame %+v", f)
	}
	data[0] = 0xEE
	if f.Data[0] != 1 {
		t.Fatal("frame aliases the driver buffer")
	}

	r := rxFrame(0x123, false, true, 4, data)
	if r.Extended || !r.RTR || r.Len != 4 || r.Data[0] != 0 {
		t.Fatalf("standard remote frame %+v", r)
	}

	if l := rxFrame(1, false, false, 15, data); l.Len != 8 {
		t.Fatalf("len %d, want 8", l.Len)
	}
}

// ---- fake controller ----

type csPin struct{ low bool }

func (p *csPin) Set(level bool) { p.low = !level }

type mcpSPI struct {
	cs     *csPin
	status []uint8 // READ STATUS replies, last one repeats
	txns   [][]byte
}

func (s *mcpSPI) Tx(w, r []byte) error {
	if !s.cs.low {
		panic("transfer without chip select")
	}
	s.txns = append(s.txns, append([]byte(nil), w...))
	if len(w) == 2 && w[0] == mcpReadStatus {
		r[1] = s.status[0]
		if len(s.status) > 1 {
			s.status = s.status[1:]
		}
	}
	return nil
}

func (s *mcpSPI) Transfer(b byte) (byte, error) { return 0, nil }

func TestMCPTxLoadsFirstIdleBuffer(t *testing.T) {
	cs := &csPin{}
	spi := &mcpSPI{cs: cs, status: []uint8{0x04}} // TXB0 pending
	tx := &mcpTx{spi: spi, cs: cs}

	f := canbus.ExtFrame(0x08AAAA66, []byte{0x03, 0x05})
	if err := tx.Send(&f); err != nil {
		t.Fatal(err)
	}
	if cs.low {
		t.Fatal("chip select left asserted")
	}
	want := [][]byte{
		{mcpReadStatus, 0},
		{mcpBitModify, mcpCANINTF, 0x08, 0},
		{0x42, 0x45, 0x4A, 0xAA, 0x66, 0x02, 0x03, 0x05},
		{0x82},
	}
	if len(spi.txns) != len(want) {
		t.Fatalf("transactions % X", spi.txns)
	}
	for i := range want {
		if !bytes.Equal(spi.txns[i], want[i]) {
			t.Fatalf("txn %d = % X, want % X", i, spi.txns[i], want[i])
		}
	}
}

func TestMCPTxBusy(t *testing.T) {
	cs := &csPin{}
	spi := &mcpSPI{cs: cs, status: []uint8{0x54}}
	tx := &mcpTx{spi: spi, cs: cs}

	f := canbus.ExtFrame(0x08AAAA60, make([]byte, 8))
	if err := tx.Send(&f); err != errTxBusy {
		t.Fatalf("err = %v, want busy", err)
	}
	if len(spi.txns) != mcpTxRetries {
		t.Fatalf("%d status reads, want %d", len(spi.txns), mcpTxRetries)
	}

	spi.status = []uint8{0x54, 0x14} // TXB2 frees up on the second read
	spi.txns = nil
	if err := tx.Send(&f); err != nil {
		t.Fatal(err)
	}
	if last := spi.txns[len(spi.txns)-1]; last[0] != 0x84 {
		t.Fatalf("rts % X, want 84", last)
	}
}
