package actuator

import "testing"

type pin struct {
	on    bool
	edges int
}

func (p *pin) Set(on bool) {
	if on != p.on {
		p.edges++
	}
	p.on = on
}

type screen struct{ got []DisplayValues }

func (s *screen) Show(v DisplayValues) { s.got = append(s.got, v) }

func newRig() (*Supervisor, *[2]pin, *[3]pin, *screen) {
	var m [2]pin
	var l [3]pin
	sc := &screen{}
	s := New(Outputs{
		Motors:  [2]Output{&m[0], &m[1]},
		Lamps:   [3]Output{&l[0], &l[1], &l[2]},
		Display: sc,
	})
	return s, &m, &l, sc
}

func TestMotorRunsForRequestedTime(t *testing.T) {
	s, m, _, _ := newRig()
	s.ApplyMotorCommand(0x03, 5)
	if !m[0].on || !m[1].on {
		t.Fatal("outputs not asserted on start")
	}
	for i := 0; i < 499; i++ {
		s.Tick10ms()
	}
	if !s.Motor(Left).Running || !s.Motor(Right).Running {
		t.Fatal("stopped early")
	}
	if mask, sec := s.MotorSummary(); mask != 3 || sec != 0 {
		t.Fatalf("summary %d/%d", mask, sec)
	}
	s.Tick10ms()
	if s.Motor(Left).Running || s.Motor(Right).Running {
		t.Fatal("still running after 500 ticks")
	}
	if m[0].on || m[1].on {
		t.Fatal("outputs not deasserted in the stopping tick")
	}
}

func TestZeroMaskStopsBoth(t *testing.T) {
	s, m, _, _ := newRig()
	s.ApplyMotorCommand(0x03, 10)
	s.ApplyMotorCommand(0x00, 99)
	if s.Motor(Left).Running || s.Motor(Right).Running || m[0].on || m[1].on {
		t.Fatal("mask 0 did not stop both sides")
	}
}

func TestSingleSideLeavesOtherAlone(t *testing.T) {
	s, _, _, _ := newRig()
	s.ApplyMotorCommand(0x02, 3)
	for i := 0; i < 50; i++ {
		s.Tick10ms()
	}
	s.ApplyMotorCommand(0x01, 1)
	if got := s.Motor(Right).RemainingTicks; got != 250 {
		t.Fatalf("right remaining %d, want 250", got)
	}
	if got := s.Motor(Left).RemainingTicks; got != 100 {
		t.Fatalf("left remaining %d, want 100", got)
	}
	if mask, sec := s.MotorSummary(); mask != 3 || sec != 2 {
		t.Fatalf("summary %d/%d, want 3/2", mask, sec)
	}
	// restart resets the countdown
	s.ApplyMotorCommand(0x02, 1)
	if got := s.Motor(Right).RemainingTicks; got != 100 {
		t.Fatalf("restart remaining %d", got)
	}
}

func TestZeroRuntimeStopsOnNextTick(t *testing.T) {
	s, m, _, _ := newRig()
	s.ApplyMotorCommand(0x01, 0)
	if !s.Motor(Left).Running {
		t.Fatal("enable bit with zero runtime should start")
	}
	s.Tick10ms()
	if s.Motor(Left).Running || m[0].on {
		t.Fatal("zero runtime motor still running after one tick")
	}
}

func TestLampsAndDisplay(t *testing.T) {
	s, _, l, sc := newRig()
	s.ApplyLampCommand(0x05 | 0x80)
	if !l[0].on || l[1].on || !l[2].on {
		t.Fatalf("lamps %v %v %v", l[0].on, l[1].on, l[2].on)
	}
	if s.Lamp() != 0x85 {
		t.Fatalf("lamp byte %#x", s.Lamp())
	}
	s.ApplyLampCommand(LampEntry)
	if l[0].on || !l[1].on || l[2].on {
		t.Fatal("lamp update wrong")
	}

	s.ApplyDisplayCommand(4, 1200, 1100)
	want := DisplayValues{Diff: 4, Left: 1200, Right: 1100}
	if s.Display() != want || len(sc.got) != 1 || sc.got[0] != want {
		t.Fatalf("display %+v / %+v", s.Display(), sc.got)
	}
}

func TestTopPositionEdges(t *testing.T) {
	s, _, _, _ := newRig()
	levels := []bool{false, false, true, true, false, true}
	var edges []int
	for i, lv := range levels {
		if s.SampleTopPosition(lv) {
			edges = append(edges, i)
		}
	}
	if len(edges) != 2 || edges[0] != 2 || edges[1] != 5 {
		t.Fatalf("edges at %v, want [2 5]", edges)
	}
	if !s.TopLatched() {
		t.Fatal("latch not set")
	}
	s.ClearTopLatch()
	if s.TopLatched() {
		t.Fatal("latch not cleared")
	}
	if s.SampleTopPosition(true) {
		t.Fatal("steady high is not an edge")
	}
}

func TestNilOutputs(t *testing.T) {
	s := New(Outputs{})
	s.ApplyMotorCommand(1, 1)
	s.ApplyLampCommand(7)
	s.ApplyDisplayCommand(1, 2, 3)
	s.Tick10ms()
}
