package util

import (
	"testing"
	"time"
)

func TestDecodeJSON(t *testing.T) {
	type P struct {
		A int    `json:"a"`
		B string `json:"b"`
	}

	for name, in := range map[string]any{
		"bytes":  []byte(`{"a":1,"b":"x"}`),
		"string": `{"a":1,"b":"x"}`,
		"map":    map[string]any{"a": 1, "b": "x"},
	} {
		var p P
		if err := DecodeJSON(in, &p); err != nil {
			t.Fatalf("%s: decode failed: %v", name, err)
		}
		if p.A != 1 || p.B != "x" {
			t.Fatalf("%s: unexpected result: %+v", name, p)
		}
	}
	var p P
	if err := DecodeJSON(`{"a":`, &p); err == nil {
		t.Fatal("truncated input decoded")
	}
}

func TestBit(t *testing.T) {
	if Bit(true, 0x04) != 0x04 || Bit(false, 0x04) != 0 {
		t.Fatal("Bit failed")
	}
}

func TestResetAndDrainTimer(t *testing.T) {
	tm := time.NewTimer(time.Hour)
	ResetTimer(tm, time.Millisecond)
	select {
	case <-tm.C:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("timer did not fire after ResetTimer")
	}
	// fired and unread: reset must drain the stale tick first
	ResetTimer(tm, 0)
	time.Sleep(5 * time.Millisecond)
	ResetTimer(tm, time.Hour)
	select {
	case <-tm.C:
		t.Fatal("stale tick leaked through ResetTimer")
	case <-time.After(20 * time.Millisecond):
	}
}
