package proto

import (
	"testing"

	"eusama-go/canbus"
	"eusama-go/errcode"
)

func TestIdentifiers(t *testing.T) {
	if got := ID(DMSRight); got != 0x08AAAA60 {
		t.Fatalf("ID(DMSRight) = %#x", got)
	}
	if got := ID(LampCmd); got != 0x08AAAA73 {
		t.Fatalf("ID(LampCmd) = %#x", got)
	}
	if s, ok := SubOf(0x08AAAA71); !ok || s != MotorCmd {
		t.Fatalf("SubOf = %v %v", s, ok)
	}
	if _, ok := SubOf(0x08AAAB60); ok {
		t.Fatal("foreign prefix accepted")
	}
	if _, ok := SubOf(0x060); ok {
		t.Fatal("short id accepted")
	}
}

func TestFilter(t *testing.T) {
	f := Filter()
	if !f(canbus.ExtFrame(ID(ScaleCmd), nil)) {
		t.Fatal("vendor frame rejected")
	}
	if f(canbus.Frame{ID: 0x71}) {
		t.Fatal("standard frame accepted")
	}
	if f(canbus.Frame{ID: ID(LampCmd), Extended: true, RTR: true}) {
		t.Fatal("remote frame accepted")
	}
}

func TestTraceFilter(t *testing.T) {
	var w [8]uint16
	dms := DMSLeftFrame(&w)
	status := canbus.ExtFrame(ID(MotorStatus), []byte{0, 0})
	foreign := canbus.ExtFrame(0x08AAAB61, nil)

	quiet := TraceFilter(false)
	if quiet(dms) || quiet(DMSRightFrame(&w)) {
		t.Fatal("weight frames traced")
	}
	if !quiet(status) || quiet(foreign) {
		t.Fatal("quiet trace selection wrong")
	}
	all := TraceFilter(true)
	if !all(dms) || !all(status) || all(foreign) {
		t.Fatal("full trace selection wrong")
	}
	if !Periodic()(dms) || Periodic()(status) {
		t.Fatal("Periodic selection wrong")
	}
}

func TestMinLen(t *testing.T) {
	cases := map[SubID]uint8{
		DMSRight: 8, DMSLeft: 8, SystemStatus: 8, MotorStatus: 2, TopPosition: 2,
		ScaleCmd: 6, MotorCmd: 2, DisplayCmd: 5, LampCmd: 1,
	}
	for s, want := range cases {
		if n, ok := MinLen(s); !ok || n != want {
			t.Errorf("%v: MinLen = %d %v, want %d", s, n, ok, want)
		}
	}
	if _, ok := MinLen(0x02); ok {
		t.Error("unknown sub-id has a length")
	}
}

func TestOutboundLayouts(t *testing.T) {
	w := [8]uint16{1, 2, 3, 4, 0x0102, 0x0304, 0x0506, 0x0708}
	f := DMSRightFrame(&w)
	if f.ID != ID(DMSRight) || !f.Extended || f.Len != 8 {
		t.Fatalf("bad DMS header %v", f)
	}
	if f.String() != "08AAAA60 [8] 01 02 03 04 05 06 07 08" {
		t.Fatalf("DMS right = %s", f)
	}
	if l := DMSLeftFrame(&w); l.Data[1] != 1 || l.Data[7] != 4 {
		t.Fatalf("DMS left = %s", l)
	}

	s := SystemStatusMsg{Flags: FlagLeftMotor | FlagTop, Lamp: 5, SumLeft: 0x1234, SumRight: 0xABCD}.Frame()
	if s.String() != "08AAAA65 [8] 05 05 12 34 AB CD 00 00" {
		t.Fatalf("system status = %s", s)
	}

	m := MotorStatusMsg{Running: 3, Seconds: 4}.Frame()
	if m.Len != 2 || m.Data[0] != 3 || m.Data[1] != 4 {
		t.Fatalf("motor status = %s", m)
	}

	tp := TopPositionFrame(0x1FF)
	if tp.Len != 2 || tp.Data[0] != 0x01 || tp.Data[1] != 0xFF {
		t.Fatalf("top position = %s", tp)
	}
}

func TestDecodeCommands(t *testing.T) {
	sf := ScaleCommand{Channel: 2, Slot: 3, ADCount: 512, Weight: 75}.Frame()
	sc, err := DecodeScale(&sf)
	if err != nil || sc.Channel != 2 || sc.Slot != 3 || sc.ADCount != 512 || sc.Weight != 75 {
		t.Fatalf("DecodeScale = %+v %v", sc, err)
	}

	df := DisplayCommand{Diff: 9, Left: 300, Right: 0xFFFF}.Frame()
	dc, err := DecodeDisplay(&df)
	if err != nil || dc.Diff != 9 || dc.Left != 300 || dc.Right != 0xFFFF {
		t.Fatalf("DecodeDisplay = %+v %v", dc, err)
	}

	mf := MotorCommand{Mask: 1, Seconds: 5}.Frame()
	if mc, err := DecodeMotor(&mf); err != nil || mc.Mask != 1 || mc.Seconds != 5 {
		t.Fatalf("DecodeMotor = %+v %v", mc, err)
	}

	lf := LampCommand{Bits: 7}.Frame()
	if lc, err := DecodeLamp(&lf); err != nil || lc.Bits != 7 {
		t.Fatalf("DecodeLamp = %+v %v", lc, err)
	}
}

func TestDecodeShort(t *testing.T) {
	f := canbus.ExtFrame(ID(ScaleCmd), []byte{0, 0, 2, 0, 0})
	if _, err := DecodeScale(&f); err != errcode.ShortFrame {
		t.Fatalf("expected short_frame, got %v", err)
	}
	e := canbus.ExtFrame(ID(LampCmd), nil)
	if _, err := DecodeLamp(&e); errcode.Of(err) != errcode.ShortFrame {
		t.Fatalf("expected short_frame, got %v", err)
	}
}
