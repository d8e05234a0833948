package calstore

import (
	"bytes"
	"sync"
	"testing"

	"eusama-go/errcode"
)

// fakeAT24 emulates the two-byte addressed AT24Cxx protocol.
type fakeAT24 struct {
	mu      sync.Mutex
	mem     [4096]byte
	ptr     uint16
	corrupt bool
}

func (f *fakeAT24) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(w) >= 2 {
		f.ptr = uint16(w[0])<<8 | uint16(w[1])
		for _, b := range w[2:] {
			if f.corrupt {
				b ^= 0xFF
			}
			f.mem[f.ptr%uint16(len(f.mem))] = b
			f.ptr++
		}
	}
	for i := range r {
		r[i] = f.mem[f.ptr%uint16(len(f.mem))]
		f.ptr++
	}
	return nil
}

func blob() []byte {
	b := make([]byte, 128)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func TestEEPROMRoundTrip(t *testing.T) {
	f := &fakeAT24{}
	e := NewEEPROM(f, Config{Offset: 64})

	want := blob()
	if err := e.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !bytes.Equal(f.mem[64:64+128], want) {
		t.Fatal("blob not at configured offset")
	}
	got := make([]byte, 128)
	if err := e.Load(got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("round trip mismatch")
	}
}

func TestEEPROMVerify(t *testing.T) {
	f := &fakeAT24{corrupt: true}
	e := NewEEPROM(f, Config{})
	if err := e.Save(blob()); err != ErrVerify {
		t.Fatalf("expected ErrVerify, got %v", err)
	}
}

func TestMem(t *testing.T) {
	m := &Mem{}
	buf := make([]byte, 4)
	if err := m.Load(buf); errcode.Of(err) != errcode.BadBlob {
		t.Fatalf("blank load: %v", err)
	}
	_ = m.Save([]byte{1, 2, 3, 4})
	if err := m.Load(buf); err != nil || buf[3] != 4 || m.Saves != 1 {
		t.Fatalf("load %v %v", buf, err)
	}
}
